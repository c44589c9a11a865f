// Package nixedit edits package lists inside Nix configuration documents
// without a full Nix parser.
//
// A small scanner turns the document into tokens (whitespace, comments,
// identifiers, strings with interpolation, punctuation). The locator then
// follows attribute sets from the top of the document, skipping function
// headers and with/let/rec/assert prefixes, until it finds the binding for
// a dotted attribute path such as "environment.systemPackages". Nested
// forms like
//
//	environment = {
//	  systemPackages = with pkgs; [ vim ];
//	};
//
// are found as well. Sets reached through function application, such as
// "lib.mkIf cond { ... }", and let bindings are not searched.
//
// The bound value must be an optional run of "with X;" clauses, an optional
// opening parenthesis and a list literal. Entries are whitespace separated
// and bracketed groups count as one entry.
//
// Every function here is a pure text transformation: the document outside
// the edited list is returned unchanged.
package nixedit
