package style

//go:generate go tool go-enum --marshal --names

// Horizontal alignment of paragraph text.
// ENUM(left, center, right, justify)
type Align int
