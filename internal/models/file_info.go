package models

import "time"

// Export formats the service can produce.
const (
	FormatGDS  = "gds"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// ValidExportFormat reports whether f names a supported artifact format.
func ValidExportFormat(f string) bool {
	switch f {
	case FormatGDS, FormatSVG, FormatJSON:
		return true
	}
	return false
}

// FileInfo represents metadata about an exported artifact.
type FileInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Format    string    `json:"format"` // "gds", "svg", "json"
	DesignID  string    `json:"designId,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
