package nixedit

// Elements returns the raw text of each entry in the list bound to attr,
// in document order.
func Elements(src, attr string) ([]string, error) {
	_, lv, err := locate(src, attr)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lv.elements))
	for _, el := range lv.elements {
		out = append(out, el.text)
	}
	return out, nil
}

// Packages returns the entries of the list bound to attr with the
// namespace qualifier stripped.
func Packages(src, attr string) ([]string, error) {
	els, err := Elements(src, attr)
	if err != nil {
		return nil, err
	}
	for i, el := range els {
		els[i] = Bare(el)
	}
	return els, nil
}

// Scopes returns the expressions of the with-clauses preceding the list
// bound to attr, e.g. ["pkgs"] for "with pkgs; [ ... ]".
func Scopes(src, attr string) ([]string, error) {
	_, lv, err := locate(src, attr)
	if err != nil {
		return nil, err
	}
	return lv.scopes, nil
}
