package models

import "time"

// Thread is the view aggregate built per request by the feed assembler:
// a post plus its resolved ancestor chain and the tags of the originating
// post. It is never persisted.
type Thread struct {
	Username string    `json:"username"`
	Created  time.Time `json:"created"`
	Contents []Post    `json:"contents"`
	Tags     []string  `json:"tags"`
}
