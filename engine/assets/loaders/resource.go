package loaders

type ResourceType int

/** @brief Asset kinds the renderer consumes. */
const (
	/** @brief Files no loader handles. */
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V shader bytecode (.spv). */
	ResourceTypeShader
	/** @brief Texture images (png, jpeg, gif, bmp, tiff, webp). */
	ResourceTypeImage
	/** @brief Wavefront OBJ meshes. */
	ResourceTypeModel
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource, relative to the assets directory. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The kind of loader that produced it. */
	Type ResourceType
	/** @brief The size of the file on disk in bytes. */
	DataSize uint64
	/** @brief *ShaderSource, *Texture or *Model depending on Type. */
	Data interface{}
}
