package styles

// Plain glyphs; they render in any terminal font.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconInfo    = "i"
	IconPending = "…"
	IconSkipped = "-"
	IconPreview = "~"
	IconBullet  = "▸"
)
