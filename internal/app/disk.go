package app

import "syscall"

type diskStats struct {
	TotalBytes     uint64 `json:"total_bytes"`
	UsedBytes      uint64 `json:"used_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
	// Recording time left at the session's byte rate.
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// diskUsage returns usage for the filesystem holding path, or nil on error.
func diskUsage(path string, byteRate uint32) *diskStats {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return nil
	}
	total := st.Blocks * uint64(st.Bsize)
	avail := st.Bavail * uint64(st.Bsize)
	d := &diskStats{
		TotalBytes:     total,
		UsedBytes:      total - st.Bfree*uint64(st.Bsize),
		AvailableBytes: avail,
	}
	if byteRate > 0 {
		d.RemainingSeconds = float64(avail) / float64(byteRate)
	}
	return d
}
