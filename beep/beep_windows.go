//go:build windows

package beep

// No chime playback on Windows.

func Init()           {}
func PlayConnect()    {}
func PlayDisconnect() {}
func PlayError()      {}
