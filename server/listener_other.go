//go:build !unix

package server

import "syscall"

func socketOptions(int) func(network, address string, c syscall.RawConn) error {
	return nil
}
