// Package common holds small helpers shared by the client packages.
package common

// WipeByteArray overwrites b with zeros. Password buffers read from the
// terminal are wiped once they have been copied into a form.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
