/*
credgate - Pluggable credential authentication engine.
Copyright © 2019-2024 Max Mazurov <fox.cpp@disroot.org>, credgate contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package pass_table

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	HashSHA256 = "sha256"
	HashBcrypt = "bcrypt"
	HashArgon2 = "argon2"

	DefaultHash = HashBcrypt

	Argon2Salt = 16
	Argon2Size = 64
)

// ErrHashMismatch is returned by hash verification functions if the
// password does not match.
var ErrHashMismatch = errors.New("pass_table: hash mismatch")

type (
	// HashOpts is the structure that holds additional parameters for used hash
	// functions. They are used for new passwords.
	//
	// These parameters should be stored together with the hashed password
	// so it can be verified independently of the used HashOpts.
	HashOpts struct {
		// Bcrypt cost value to use. Should be at least 10.
		BcryptCost int

		Argon2Time    uint32
		Argon2Memory  uint32
		Argon2Threads uint8
	}

	FuncHashCompute func(opts HashOpts, pass []byte) (string, error)
	FuncHashVerify  func(pass []byte, hashSalt string) error
)

var (
	HashCompute = map[string]FuncHashCompute{
		HashBcrypt: computeBcrypt,
		HashArgon2: computeArgon2,
		HashSHA256: computeSHA256,
	}
	HashVerify = map[string]FuncHashVerify{
		HashBcrypt: verifyBcrypt,
		HashArgon2: verifyArgon2,
		HashSHA256: verifySHA256,
	}

	Hashes = []string{HashSHA256, HashBcrypt, HashArgon2}
)

// DefaultHashOpts are the parameters used by 'credgate hash' unless
// overridden.
var DefaultHashOpts = HashOpts{
	BcryptCost:    bcrypt.DefaultCost,
	Argon2Time:    3,
	Argon2Memory:  1024,
	Argon2Threads: 1,
}

// Compute hashes pass with the named function and prefixes the result with
// the hash tag, as stored in the table.
func Compute(hash string, opts HashOpts, pass []byte) (string, error) {
	compute := HashCompute[hash]
	if compute == nil {
		return "", fmt.Errorf("pass_table: unknown hash function: %v", hash)
	}
	hashed, err := compute(opts, pass)
	if err != nil {
		return "", err
	}
	return hash + ":" + hashed, nil
}

// Verify checks pass against a tagged hash string.
func Verify(pass []byte, tagged string) error {
	parts := strings.SplitN(tagged, ":", 2)
	if len(parts) != 2 {
		return errors.New("pass_table: no hash tag")
	}
	hashVerify := HashVerify[parts[0]]
	if hashVerify == nil {
		return fmt.Errorf("pass_table: unknown hash: %s", parts[0])
	}
	return hashVerify(pass, parts[1])
}

func computeArgon2(opts HashOpts, pass []byte) (string, error) {
	salt := make([]byte, Argon2Salt)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("pass_table: failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(pass, salt, opts.Argon2Time, opts.Argon2Memory, opts.Argon2Threads, Argon2Size)
	var out strings.Builder
	out.WriteString(strconv.FormatUint(uint64(opts.Argon2Time), 10))
	out.WriteRune(':')
	out.WriteString(strconv.FormatUint(uint64(opts.Argon2Memory), 10))
	out.WriteRune(':')
	out.WriteString(strconv.FormatUint(uint64(opts.Argon2Threads), 10))
	out.WriteRune(':')
	out.WriteString(base64.StdEncoding.EncodeToString(salt))
	out.WriteRune(':')
	out.WriteString(base64.StdEncoding.EncodeToString(hash))
	return out.String(), nil
}

func verifyArgon2(pass []byte, hashSalt string) error {
	parts := strings.SplitN(hashSalt, ":", 5)
	if len(parts) != 5 {
		return errors.New("pass_table: malformed hash string")
	}

	time, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string: %w", err)
	}
	memory, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string: %w", err)
	}
	threads, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string: %w", err)
	}

	passHash := argon2.IDKey(pass, salt, uint32(time), uint32(memory), uint8(threads), Argon2Size)
	if subtle.ConstantTimeCompare(passHash, hash) != 1 {
		return ErrHashMismatch
	}
	return nil
}

func computeSHA256(_ HashOpts, pass []byte) (string, error) {
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("pass_table: failed to generate salt: %w", err)
	}

	hashInput := append(salt[:len(salt):len(salt)], pass...)
	sum := sha256.Sum256(hashInput)
	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(sum[:]), nil
}

func verifySHA256(pass []byte, hashSalt string) error {
	parts := strings.Split(hashSalt, ":")
	if len(parts) != 2 {
		return fmt.Errorf("pass_table: malformed hash string, no salt")
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string, cannot decode pass: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("pass_table: malformed hash string, cannot decode pass: %w", err)
	}

	hashInput := append(salt, pass...)
	sum := sha256.Sum256(hashInput)
	for i := range hashInput {
		hashInput[i] = 0
	}

	if subtle.ConstantTimeCompare(sum[:], hash) != 1 {
		return ErrHashMismatch
	}
	return nil
}

func computeBcrypt(opts HashOpts, pass []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(pass, opts.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyBcrypt(pass []byte, hashSalt string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashSalt), pass)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrHashMismatch
	}
	return err
}
