// SPDX-License-Identifier: MIT

package playlist

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// WriteM3U writes entries as an extended M3U document.
func WriteM3U(w io.Writer, entries []Entry) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, e := range entries {
		buf.WriteString(fmt.Sprintf(
			`#EXTINF:-1 tvg-chno="%d" tvg-id="%s" tvg-logo="%s" group-title="%s",%s`+"\n",
			e.Number, e.ID, e.Logo, e.Group, e.Name,
		))
		buf.WriteString(e.URL + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}

// ExportM3U atomically writes the normalized playlist to path.
func ExportM3U(path string, entries []Entry) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending playlist: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := WriteM3U(pending, entries); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace playlist: %w", err)
	}
	return nil
}
