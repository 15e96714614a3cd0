package clarity

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var errInvalidPrincipal = errors.New("invalid principal")

// principalAddress renders a version byte and hash160 as a c32check address.
func principalAddress(version byte, hash160 []byte) (string, error) {
	if int(version) >= len(c32Alphabet) {
		return "", fmt.Errorf("%w: version %d", errInvalidPrincipal, version)
	}
	checksum := c32Checksum(version, hash160)
	payload := append(append([]byte(nil), hash160...), checksum...)
	return "S" + string(c32Alphabet[version]) + c32Encode(payload), nil
}

// parsePrincipal splits an address (optionally with .contract-name) into its
// version byte, hash160 and contract name.
func parsePrincipal(address string) (byte, []byte, string, error) {
	principal, name, _ := strings.Cut(address, ".")
	if len(principal) < 3 || (principal[0] != 'S' && principal[0] != 's') {
		return 0, nil, "", fmt.Errorf("%w: %q", errInvalidPrincipal, address)
	}
	principal = normalizeC32(principal[1:])

	version := strings.IndexByte(c32Alphabet, principal[0])
	if version < 0 {
		return 0, nil, "", fmt.Errorf("%w: %q", errInvalidPrincipal, address)
	}
	decoded, err := c32Decode(principal[1:])
	if err != nil {
		return 0, nil, "", fmt.Errorf("%w: %q: %v", errInvalidPrincipal, address, err)
	}
	// Leading zero bytes of the checksum cannot be recovered from the digit string.
	if len(decoded) > 24 {
		return 0, nil, "", fmt.Errorf("%w: %q", errInvalidPrincipal, address)
	}
	decoded = append(make([]byte, 24-len(decoded)), decoded...)

	hash, checksum := decoded[:20], decoded[20:]
	if !bytes.Equal(checksum, c32Checksum(byte(version), hash)) {
		return 0, nil, "", fmt.Errorf("%w: bad checksum in %q", errInvalidPrincipal, address)
	}
	if len(name) > 128 {
		return 0, nil, "", fmt.Errorf("%w: contract name too long", errInvalidPrincipal)
	}
	return byte(version), hash, name, nil
}

func c32Checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

func c32Encode(data []byte) string {
	n := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)

	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	for _, b := range data {
		if b != 0 {
			break
		}
		digits = append(digits, '0')
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

func c32Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}
	n := new(big.Int)
	base := big.NewInt(32)
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(c32Alphabet, s[i])
		if d < 0 {
			return nil, fmt.Errorf("invalid c32 character %q", s[i])
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(d)))
	}
	return append(make([]byte, zeros), n.Bytes()...), nil
}

func normalizeC32(s string) string {
	s = strings.ToUpper(s)
	return strings.NewReplacer("O", "0", "L", "1", "I", "1").Replace(s)
}
