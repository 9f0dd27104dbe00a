package cache

import "golang.org/x/sys/unix"

// FileStat is the subset of lstat(2) metadata the cache compares against,
// captured with nanosecond mtime/ctime precision that os.FileInfo doesn't
// expose.
type FileStat struct {
	Mode      uint32
	Size      int64
	MTimeSec  int64
	MTimeNsec int64
	CTimeSec  int64
	CTimeNsec int64
}

// Stat lstats path and returns its FileStat.
func Stat(path string) (FileStat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return FileStat{}, err
	}

	return FileStat{
		Mode:      st.Mode,
		Size:      st.Size,
		MTimeSec:  int64(st.Mtim.Sec),
		MTimeNsec: int64(st.Mtim.Nsec),
		CTimeSec:  int64(st.Ctim.Sec),
		CTimeNsec: int64(st.Ctim.Nsec),
	}, nil
}
