package assets

import "embed"

// FS holds the assets shipped inside the binaries. Files under the configured
// asset root on disk override these.
//
//go:embed sprites prefabs ai
var FS embed.FS

// MissingTexture is drawn in place of textures that failed to load.
const MissingTexture = "sprites/missing.png"
