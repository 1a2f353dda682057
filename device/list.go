package device

import (
	"fmt"
	"io"

	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"
)

type Info struct {
	ID      string
	Name    string
	Default bool
	Formats []malgo.DataFormat
	Error   string
}

// ListCaptureDevices enumerates the audio inputs visible to the default backend.
func ListCaptureDevices() ([]Info, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "malgo init context")
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get capture device list")
	}

	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		di := Info{ID: info.ID.String(), Name: info.Name(), Default: info.IsDefault != 0}
		full, err := mctx.DeviceInfo(malgo.Capture, info.ID, malgo.Shared)
		if err != nil {
			di.Error = err.Error()
		} else {
			di.Formats = full.Formats
		}
		out = append(out, di)
	}
	return out, nil
}

func PrintCaptureDevices(w io.Writer, devices []Info) {
	fmt.Fprintln(w, "Capture Devices:")
	for i, d := range devices {
		status := "ok"
		if d.Error != "" {
			status = d.Error
		}
		def := ""
		if d.Default {
			def = " (default)"
		}
		fmt.Fprintf(w, "    %d: %s%s, [%s], formats: %+v\n", i, d.Name, def, status, d.Formats)
	}
}
