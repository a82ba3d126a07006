package hashutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// ChecksumFile calculates the SHA256 checksum of a file
func ChecksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// ChecksumBytes calculates the SHA256 checksum of a byte slice
func ChecksumBytes(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

// ChecksumString calculates the SHA256 checksum of a string
func ChecksumString(s string) string {
	return ChecksumBytes([]byte(s))
}
