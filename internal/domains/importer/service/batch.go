package service

// BatchRange is one contiguous slice of data rows, 1-based inclusive.
type BatchRange struct {
	StartRow int
	EndRow   int
}

// BatchRanges splits rows [1, fileRows] into contiguous ranges of at most
// pageSize rows. Ranges never overlap and never leave a gap, so every data
// row is dispatched to exactly one batch task.
func BatchRanges(fileRows, pageSize int) []BatchRange {
	if fileRows <= 0 || pageSize <= 0 {
		return nil
	}

	ranges := make([]BatchRange, 0, (fileRows+pageSize-1)/pageSize)
	for start := 1; start <= fileRows; start += pageSize {
		end := start + pageSize - 1
		if end > fileRows {
			end = fileRows
		}
		ranges = append(ranges, BatchRange{StartRow: start, EndRow: end})
	}
	return ranges
}
