package parqrow

import (
	"io"

	"github.com/pkg/errors"
)

// AppendTo copies this file's row groups onto dst as raw bytes, one row
// group at a time in file order, mirroring ParquetFileReader.appendTo: a
// byte-for-byte block copy with no re-encoding, re-compression, or schema
// reconciliation. It does not write a trailer; callers merging several
// sources are expected to assemble one footer afterward from the
// metadata of every appended file.
func (r *Reader) AppendTo(dst io.Writer) error {
	if r.closed {
		return newReadError(ErrKindClosed, "AppendTo", nil)
	}
	for i := range r.Metadata.RowGroups {
		rg := &r.Metadata.RowGroups[i]
		if err := r.appendRowGroup(dst, rg); err != nil {
			return newReadError(ErrKindIO, "AppendTo", errors.Wrapf(err, "row group %d", rg.Ordinal))
		}
	}
	return nil
}

func (r *Reader) appendRowGroup(dst io.Writer, rg *RowGroupMetadata) error {
	if len(rg.Columns) == 0 {
		return nil
	}
	start := rg.Columns[0].firstByteOffset()
	end := start
	for i := range rg.Columns {
		if e := rg.Columns[i].endByteOffset(); e > end {
			end = e
		}
	}
	buf := make([]byte, end-start)
	if _, err := r.io.ReadAt(buf, start); err != nil {
		return err
	}
	_, err := dst.Write(buf)
	return err
}
