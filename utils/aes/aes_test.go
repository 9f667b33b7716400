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

package aes

import (
	"testing"

	"github.com/rulego/rulego-components-file/test/assert"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("my-secret-key")
	encrypted, err := Encrypt("p@ssw0rd", key)
	assert.Nil(t, err)
	assert.NotEqual(t, "p@ssw0rd", encrypted)

	plain, err := Decrypt(encrypted, key)
	assert.Nil(t, err)
	assert.Equal(t, "p@ssw0rd", plain)

	_, err = Decrypt(encrypted, []byte("other-key"))
	assert.NotNil(t, err)

	_, err = Decrypt("AAAA", key)
	assert.Equal(t, ErrCiphertextTooShort, err)

	_, err = Decrypt("not base64!", key)
	assert.NotNil(t, err)
}
