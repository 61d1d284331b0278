package book

//go:generate go tool go-enum --marshal --names

// Kind of paragraph.
// ENUM(normal, title)
type ParagraphType int
