package npkg

import (
	"embed"
	"io/fs"
)

//go:embed topics
var topicFiles embed.FS

// helpTopics returns the embedded help topics
func helpTopics() fs.FS {
	sub, err := fs.Sub(topicFiles, "topics")
	if err != nil {
		panic(err)
	}
	return sub
}
