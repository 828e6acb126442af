package parqrow

// chunkBytes is the byte payload for one column chunk's scanned byte
// range, either a slice into a part-sized shared buffer (sync path) or an
// independently fetched buffer (async path). On the unfiltered path start
// equals chunk.firstByteOffset() and startPageOrdinal is 0; on the
// filtered path start may be later in the chunk (leading pages the
// column index ruled out are skipped), and startPageOrdinal records which
// page ordinal start corresponds to, so AAD derivation for encrypted
// pages still uses the correct ordinal.
type chunkBytes struct {
	chunk            *ColumnChunkMetadata
	data             []byte // data[0] corresponds to file offset start
	start            int64
	end              int64
	startPageOrdinal int
}

// chunkSource fetches the bytes a set of consecutive parts describes,
// grounded on BackendReaderAt/cachedReaderAt: wrap an io.ReaderAt, let the
// caller drive which sections get read, track bytes read through the
// counting wrapper.
type chunkSource interface {
	// fetch reads every part and returns one chunkBytes per chunkSpan
	// referenced by parts.
	fetch(parts []consecutivePart) ([]chunkBytes, error)
}

// syncChunkSource issues one ReadAt per consecutive part (the coalesced
// read the range planner exists to make possible) and slices each
// column's bytes out of the shared part buffer.
type syncChunkSource struct {
	io *countingReaderAt
}

func newSyncChunkSource(io *countingReaderAt) *syncChunkSource {
	return &syncChunkSource{io: io}
}

func (s *syncChunkSource) fetch(parts []consecutivePart) ([]chunkBytes, error) {
	var out []chunkBytes
	for _, part := range parts {
		buf := make([]byte, part.offsetRange.Len())
		if _, err := s.io.ReadAt(buf, part.offsetRange.Start); err != nil {
			return nil, newReadError(ErrKindIO, "syncChunkSource.fetch", err)
		}
		for _, sp := range part.chunks {
			lo := sp.r.Start - part.offsetRange.Start
			hi := sp.r.End - part.offsetRange.Start
			out = append(out, chunkBytes{
				chunk:            sp.chunk,
				data:             buf[lo:hi],
				start:            sp.r.Start,
				end:              sp.r.End,
				startPageOrdinal: sp.startPageOrdinal,
			})
		}
	}
	return out, nil
}

// asyncChunkSource reads each column chunk's span with its own ReadAt,
// submitted to an Executor so multiple chunks can be in flight at once;
// it forgoes the single-seek coalescing syncChunkSource does in exchange
// for letting independent column streams overlap with downstream decode
// work, the same tradeoff the original reader's async mode makes.
type asyncChunkSource struct {
	io       *countingReaderAt
	executor Executor
}

func newAsyncChunkSource(io *countingReaderAt, executor Executor) *asyncChunkSource {
	return &asyncChunkSource{io: io, executor: executor}
}

func (s *asyncChunkSource) fetch(parts []consecutivePart) ([]chunkBytes, error) {
	type job struct {
		span chunkSpan
		buf  []byte
		err  error
	}
	var jobs []*job
	for _, part := range parts {
		for _, sp := range part.chunks {
			jobs = append(jobs, &job{span: sp})
		}
	}
	done := make(chan struct{}, len(jobs))
	for _, j := range jobs {
		j := j
		s.executor.Submit(func() {
			buf := make([]byte, j.span.r.Len())
			_, err := s.io.ReadAt(buf, j.span.r.Start)
			j.buf, j.err = buf, err
			done <- struct{}{}
		})
	}
	for range jobs {
		<-done
	}
	out := make([]chunkBytes, 0, len(jobs))
	for _, j := range jobs {
		if j.err != nil {
			return nil, newReadError(ErrKindIO, "asyncChunkSource.fetch", j.err)
		}
		out = append(out, chunkBytes{
			chunk:            j.span.chunk,
			data:             j.buf,
			start:            j.span.r.Start,
			end:              j.span.r.End,
			startPageOrdinal: j.span.startPageOrdinal,
		})
	}
	return out, nil
}
