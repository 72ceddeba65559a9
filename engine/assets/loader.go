package assets

import "github.com/spaghettifunk/viking/engine/assets/loaders"

// Loader reads the file at path into a Resource named name. Data holds the
// loader specific payload.
type Loader interface {
	Load(path string, name string) (*loaders.Resource, error)
	Unload(*loaders.Resource) error
}
