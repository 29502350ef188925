package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/tanglegram/tangleopt/pkg/compression"
	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
	"github.com/tanglegram/tangleopt/pkg/writer"
)

// compressionType maps a --compress flag value to a compression.Type.
func compressionType(flag string) (compression.Type, error) {
	switch flag {
	case "", "none":
		return compression.TypeNone, nil
	case "gzip":
		return compression.TypeGzip, nil
	case "zstd":
		return compression.TypeZstd, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown compression %q, must be \"none\", \"gzip\" or \"zstd\"", flag)
	}
}

// writeRecord marshals data as pretty JSON and writes it either uncompressed
// to out (stdout, when outPath is empty) or compressed to outPath according
// to compressFlag. Compression to stdout is rejected: there is no terminal
// convention for binary JSON output, so a compressed record always needs a
// file destination.
func writeRecord(data any, out io.Writer, outPath, compressFlag string) error {
	ctype, err := compressionType(compressFlag)
	if err != nil {
		return err
	}

	if ctype == compression.TypeNone {
		w := writer.NewPrettyJSONWriter[any]()
		if outPath == "" {
			return w.Write(data, out)
		}
		if err := w.WriteToFile(data, outPath); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "failed to write output file", err)
		}
		return nil
	}

	if outPath == "" {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "--compress=%s requires --output, compressed records cannot be written to stdout", compressFlag)
	}

	comp, err := compression.New(ctype, compression.LevelDefault)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to create compressor", err)
	}
	defer compression.Close(comp)

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to marshal record", err)
	}
	packed, err := comp.Compress(raw)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to compress record", err)
	}

	if err := os.WriteFile(outPath, packed, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to write output file", err)
	}
	return nil
}

// readRecord reads a file written by writeRecord, transparently
// auto-detecting gzip or zstd framing via magic bytes before falling back to
// plain JSON.
func readRecord(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInputParse, "failed to read input file", err)
	}

	decoded := raw
	if looksCompressed(raw) {
		decoded, err = compression.AutoDecompress(raw)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInputParse, "failed to decompress input file", err)
		}
	}

	if err := json.Unmarshal(decoded, v); err != nil {
		return apperrors.Wrap(apperrors.CodeInputParse, "failed to decode JSON", err)
	}
	return nil
}

func looksCompressed(data []byte) bool {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		return true
	}
	if len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd {
		return true
	}
	return false
}
