//go:build !linux

package keyboard

func ydotoolSocketReachable() bool { return false }
