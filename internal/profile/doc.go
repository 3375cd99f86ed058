// Package profile provides the catalog of known ECU types.
//
// Each ECUProfile declares the exact image size, the address of the 4-byte
// checksum field and an ordered list of MapDefinitions (offset, geometry,
// scale factor and inclusive physical bounds). The built-in catalog is
// embedded as profiles/profiles.yaml and parsed once by Default.
//
// # Custom Profiles
//
// Additional profiles can be loaded from YAML files with the same layout as
// the embedded catalog and combined with With, which returns a new Registry:
//
//	reg, _ := profile.Default()
//	extra, err := profile.LoadFile("my-ecus.yaml")
//	if err != nil {
//	    return err
//	}
//	reg, err = reg.With(extra...)
//
// # Invariants
//
// Every map region satisfies offset + rows*cols*2 <= size and the checksum
// field fits inside the image. Profiles violating either are rejected when
// the registry is built. Registries are never mutated after construction and
// are safe to share.
package profile
