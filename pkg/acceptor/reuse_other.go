//go:build !unix

package acceptor

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
