package types

// JSONMap stores loosely structured JSON payloads, e.g. raw gateway responses.
type JSONMap map[string]any
