package zpl

import "strings"

// Document is one or more labels, printed in order.
type Document struct {
	Labels []string
}

func (d Document) String() string {
	return strings.Join(d.Labels, "")
}
