package image

import (
	"fmt"
	"math"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/bfi/pkg/bytecode"
)

// cborEncMode is canonical so equal images encode to equal bytes.
var cborEncMode cbor.EncMode

// cborDecMode lifts the default array limit, which is far below the
// instruction count of a large program.
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{MaxArrayElements: math.MaxInt32}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// Marshal serializes an image to CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	data, err := cborEncMode.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("image: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes an image and checks its header, its source hash,
// and for optimized images that Code is the folding of Commands. Loop
// balance is validated by Program.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cborDecMode.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Magic != Magic {
		return nil, ErrBadMagic
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, img.Version)
	}
	if Hash(img.Commands) != img.SourceHash {
		return nil, ErrHashMismatch
	}
	if img.Optimized {
		code, err := bytecode.Optimize(img.Commands)
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		if !slices.Equal(code, img.Instructions()) {
			return nil, ErrCodeMismatch
		}
	}
	return &img, nil
}
