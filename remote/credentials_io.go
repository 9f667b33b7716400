/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

// ErrUTFTooLong 编码后超过 65535 字节
var ErrUTFTooLong = errors.New("encoded string too long")

// ErrMalformedUTF 非法的 modified UTF-8 编码
var ErrMalformedUTF = errors.New("malformed modified UTF-8 input")

// WriteTo 按固定顺序写入凭证：protocol, host, port, user, password, keyfile, certificate
// 字符串使用 modified UTF-8 加2字节长度前缀，端口为大端 int32
func (c *Credentials) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for _, field := range []interface{}{c.Protocol, c.Host, int32(c.Port), c.User, c.Password, c.Keyfile, c.Certificate} {
		var err error
		switch v := field.(type) {
		case string:
			err = writeUTF(cw, v)
		case int32:
			err = binary.Write(cw, binary.BigEndian, v)
		}
		if err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// ReadCredentials 读取 WriteTo 写入的凭证
func ReadCredentials(r io.Reader) (*Credentials, error) {
	var c Credentials
	var err error
	if c.Protocol, err = readUTF(r); err != nil {
		return nil, fmt.Errorf("read protocol: %w", err)
	}
	if c.Host, err = readUTF(r); err != nil {
		return nil, fmt.Errorf("read host: %w", err)
	}
	var port int32
	if err = binary.Read(r, binary.BigEndian, &port); err != nil {
		return nil, fmt.Errorf("read port: %w", err)
	}
	c.Port = int(port)
	if c.User, err = readUTF(r); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if c.Password, err = readUTF(r); err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if c.Keyfile, err = readUTF(r); err != nil {
		return nil, fmt.Errorf("read keyfile: %w", err)
	}
	if c.Certificate, err = readUTF(r); err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	return &c, nil
}

func writeUTF(w io.Writer, s string) error {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2, 2+len(units))
	for _, u := range units {
		switch {
		case u >= 0x0001 && u <= 0x007F:
			buf = append(buf, byte(u))
		case u <= 0x07FF:
			// 包括 NUL，编码为 C0 80
			buf = append(buf, byte(0xC0|(u>>6)&0x1F), byte(0x80|u&0x3F))
		default:
			buf = append(buf, byte(0xE0|(u>>12)&0x0F), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		}
	}
	length := len(buf) - 2
	if length > 0xFFFF {
		return fmt.Errorf("%w: %d bytes", ErrUTFTooLong, length)
	}
	binary.BigEndian.PutUint16(buf, uint16(length))
	_, err := w.Write(buf)
	return err
}

func readUTF(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	units := make([]uint16, 0, len(buf))
	for i := 0; i < len(buf); {
		b := buf[i]
		switch {
		case b&0x80 == 0:
			units = append(units, uint16(b))
			i++
		case b&0xE0 == 0xC0:
			if i+1 >= len(buf) || buf[i+1]&0xC0 != 0x80 {
				return "", ErrMalformedUTF
			}
			units = append(units, uint16(b&0x1F)<<6|uint16(buf[i+1]&0x3F))
			i += 2
		case b&0xF0 == 0xE0:
			if i+2 >= len(buf) || buf[i+1]&0xC0 != 0x80 || buf[i+2]&0xC0 != 0x80 {
				return "", ErrMalformedUTF
			}
			units = append(units, uint16(b&0x0F)<<12|uint16(buf[i+1]&0x3F)<<6|uint16(buf[i+2]&0x3F))
			i += 3
		default:
			return "", ErrMalformedUTF
		}
	}
	return string(utf16.Decode(units)), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
