package wallet

import (
	"fmt"
	"strings"
)

// AddressType distinguishes the two cashaddr payload kinds.
type AddressType byte

const (
	AddressP2PKH AddressType = 0
	AddressP2SH  AddressType = 1
)

const cashAddrCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// hash160Size is the only payload size used on eCash (size bits 000).
const hash160Size = 20

// Address is a decoded cashaddr.
type Address struct {
	Prefix string
	Type   AddressType
	Hash   []byte // 20-byte hash160
}

// String re-encodes the address.
func (a Address) String() string {
	s, _ := EncodeCashAddr(a.Prefix, a.Type, a.Hash)
	return s
}

// EncodeCashAddr encodes a hash160 as prefix:payload.
func EncodeCashAddr(prefix string, typ AddressType, hash []byte) (string, error) {
	if len(hash) != hash160Size {
		return "", fmt.Errorf("%w: hash must be %d bytes, got %d", ErrInvalidAddress, hash160Size, len(hash))
	}
	if typ != AddressP2PKH && typ != AddressP2SH {
		return "", fmt.Errorf("%w: unknown type %d", ErrInvalidAddress, typ)
	}
	prefix = strings.ToLower(prefix)

	raw := make([]byte, 0, 1+hash160Size)
	raw = append(raw, byte(typ)<<3)
	raw = append(raw, hash...)
	payload := convertBits(raw, 8, 5, true)

	sum := cashAddrPolymod(checksumInput(prefix, payload, make([]byte, 8)))

	var b strings.Builder
	b.Grow(len(prefix) + 1 + len(payload) + 8)
	b.WriteString(prefix)
	b.WriteByte(':')
	for _, v := range payload {
		b.WriteByte(cashAddrCharset[v])
	}
	for i := 0; i < 8; i++ {
		b.WriteByte(cashAddrCharset[(sum>>(5*(7-i)))&0x1f])
	}
	return b.String(), nil
}

// DecodeCashAddr parses a cashaddr. When addr carries no prefix,
// defaultPrefix is assumed.
func DecodeCashAddr(addr, defaultPrefix string) (*Address, error) {
	if addr != strings.ToLower(addr) && addr != strings.ToUpper(addr) {
		return nil, fmt.Errorf("%w: mixed case", ErrInvalidAddress)
	}
	addr = strings.ToLower(addr)

	prefix, body, ok := strings.Cut(addr, ":")
	if !ok {
		prefix, body = strings.ToLower(defaultPrefix), addr
	}
	if prefix == "" || len(body) < 8+1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	values := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		idx := strings.IndexByte(cashAddrCharset, body[i])
		if idx < 0 {
			return nil, fmt.Errorf("%w: invalid character %q", ErrInvalidAddress, body[i])
		}
		values[i] = byte(idx)
	}

	if cashAddrPolymod(checksumInput(prefix, values, nil)) != 0 {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	raw := convertBits(values[:len(values)-8], 5, 8, false)
	if raw == nil || len(raw) != 1+hash160Size {
		return nil, fmt.Errorf("%w: bad payload length", ErrInvalidAddress)
	}
	version := raw[0]
	if version&0x07 != 0 {
		return nil, fmt.Errorf("%w: unsupported hash size", ErrInvalidAddress)
	}
	typ := AddressType(version >> 3)
	if typ != AddressP2PKH && typ != AddressP2SH {
		return nil, fmt.Errorf("%w: unknown type %d", ErrInvalidAddress, typ)
	}

	return &Address{Prefix: prefix, Type: typ, Hash: raw[1:]}, nil
}

// DecodeAddress decodes addr and requires it to belong to network.
func DecodeAddress(addr string, network *NetworkConfig) (*Address, error) {
	if network == nil {
		network = &MainNet
	}
	a, err := DecodeCashAddr(addr, network.CashAddrHRP)
	if err != nil {
		return nil, err
	}
	if a.Prefix != network.CashAddrHRP {
		if _, known := networkForPrefix(a.Prefix); known {
			return nil, fmt.Errorf("%w: %s is not %s", ErrAddressNetworkMismatch, a.Prefix, network.Name)
		}
		return nil, fmt.Errorf("%w: unknown prefix %q", ErrInvalidAddress, a.Prefix)
	}
	return a, nil
}

func checksumInput(prefix string, payload, tail []byte) []byte {
	out := make([]byte, 0, len(prefix)+1+len(payload)+len(tail))
	for i := 0; i < len(prefix); i++ {
		out = append(out, prefix[i]&0x1f)
	}
	out = append(out, 0)
	out = append(out, payload...)
	return append(out, tail...)
}

func cashAddrPolymod(values []byte) uint64 {
	c := uint64(1)
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}

// convertBits regroups data from fromBits-wide to toBits-wide values.
// Returns nil on invalid padding when pad is false.
func convertBits(data []byte, fromBits, toBits uint, pad bool) []byte {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32(1)<<toBits - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, v := range data {
		acc = acc<<fromBits | uint32(v)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil
	}
	return out
}
