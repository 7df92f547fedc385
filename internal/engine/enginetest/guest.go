// Package enginetest builds tiny WebAssembly guests for exercising the engine
// and everything above it without a real decoder build.
package enginetest

const (
	bootstrapOffset = 512
	resultOffset    = 1024
	requestOffset   = 2048
	// Byte offset of the method's first letter in an encoded request:
	// {"method":"b...
	methodInitialOffset = 11
)

// Guest returns a module implementing the engine ABI. It answers "bootstrap"
// with "1" and every other method with result. The guest has one page of
// memory, so requests must stay under ~60 KiB and result under 1 KiB.
func Guest(result string) []byte {
	if len(result) > requestOffset-resultOffset {
		panic("enginetest: result too large")
	}
	var m []byte
	m = append(m, 0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)

	// types: (i32)->i32, (i32)->(), (i32,i32)->i64
	m = append(m, section(1, []byte{
		0x03,
		0x60, 0x01, 0x7f, 0x01, 0x7f,
		0x60, 0x01, 0x7f, 0x00,
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	})...)
	m = append(m, section(3, []byte{0x03, 0x00, 0x01, 0x02})...)
	m = append(m, section(5, []byte{0x01, 0x00, 0x01})...)

	exports := []byte{0x04}
	exports = append(append(exports, name("memory")...), 0x02, 0x00)
	exports = append(append(exports, name("malloc")...), 0x00, 0x00)
	exports = append(append(exports, name("free")...), 0x00, 0x01)
	exports = append(append(exports, name("evaluate")...), 0x00, 0x02)
	m = append(m, section(7, exports)...)

	// malloc always hands out the same scratch buffer.
	malloc := append([]byte{0x00, 0x41}, sleb(requestOffset)...)
	malloc = append(malloc, 0x0b)
	free := []byte{0x00, 0x0b}

	// if mem[ptr+11] == 'b' { return packed("1") } else { return packed(result) }
	eval := []byte{0x00, 0x20, 0x00, 0x2d, 0x00, byte(methodInitialOffset), 0x41}
	eval = append(eval, sleb('b')...)
	eval = append(eval, 0x46, 0x04, 0x7e, 0x42)
	eval = append(eval, sleb(pack(bootstrapOffset, 1))...)
	eval = append(eval, 0x05, 0x42)
	eval = append(eval, sleb(pack(resultOffset, len(result)))...)
	eval = append(eval, 0x0b, 0x0b)

	code := []byte{0x03}
	for _, body := range [][]byte{malloc, free, eval} {
		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}
	m = append(m, section(10, code)...)

	data := []byte{0x02}
	data = append(data, segment(bootstrapOffset, "1")...)
	data = append(data, segment(resultOffset, result)...)
	m = append(m, section(11, data)...)
	return m
}

// NoExports returns a valid module that lacks the engine ABI.
func NoExports() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func pack(ptr, n int) int64 { return int64(ptr)<<32 | int64(n) }

func segment(offset int, s string) []byte {
	out := []byte{0x00, 0x41}
	out = append(out, sleb(int64(offset))...)
	out = append(out, 0x0b)
	return append(out, name(s)...)
}

func section(id byte, content []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func name(s string) []byte { return append(uleb(uint32(len(s))), s...) }

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
