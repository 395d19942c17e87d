package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/mapdump/pkg/mapjson"
	"github.com/Faultbox/mapdump/pkg/scene"
	"github.com/Faultbox/mapdump/pkg/snapshot"
)

// DumpFile decodes the snapshot at path and writes its mesh array, minimal
// variant, to w.
func DumpFile(dec snapshot.Decoder, path string, w io.Writer, frame scene.Frame, pin bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	m, err := dec.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	enc := mapjson.NewEncoder(w, mapjson.Options{
		Variant:  mapjson.Minimal,
		Frame:    frame,
		PinFrame: pin,
	})
	if err := enc.Meshes(m.Models); err != nil {
		return err
	}
	return enc.Flush()
}
