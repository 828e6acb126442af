package codec

import "fmt"

func errSizeMismatch(got, want int) error {
	return fmt.Errorf("codec: decompressed size mismatch: got %d, header says %d", got, want)
}
