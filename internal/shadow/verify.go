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

package shadow

import (
	"errors"
	"fmt"
	"time"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
)

const secsInDay = 86400

func days(now time.Time) int {
	return int(now.Unix() / secsInDay)
}

func (e *Entry) IsAccountValid(now time.Time) bool {
	if e.AcctExpiry == -1 {
		return true
	}

	return days(now) < e.AcctExpiry
}

func (e *Entry) IsPasswordValid(now time.Time) bool {
	if e.LastChange == -1 || e.MaxPassAge == -1 || e.InactivityPeriod == -1 {
		return true
	}

	return days(now) < e.LastChange+e.MaxPassAge+e.InactivityPeriod
}

// PasswordExpiresIn reports the number of days left until the password
// must be changed. ok is false if password aging is disabled.
func (e *Entry) PasswordExpiresIn(now time.Time) (left int, ok bool) {
	if e.LastChange == -1 || e.MaxPassAge == -1 {
		return 0, false
	}
	return e.LastChange + e.MaxPassAge - days(now), true
}

// AccountExpiresIn reports the number of days left until the account
// expires. ok is false if the account never expires.
func (e *Entry) AccountExpiresIn(now time.Time) (left int, ok bool) {
	if e.AcctExpiry == -1 {
		return 0, false
	}
	return e.AcctExpiry - days(now), true
}

func (e *Entry) VerifyPassword(pass []byte) (err error) {
	// Do not permit null and locked passwords.
	if e.Pass == "" {
		return errors.New("verify: null password")
	}
	if e.Pass[0] == '!' || e.Pass[0] == '*' {
		return errors.New("verify: locked password")
	}

	// crypt.NewFromHash may panic on unknown hash function.
	defer func() {
		if rcvr := recover(); rcvr != nil {
			err = fmt.Errorf("verify: %v", rcvr)
		}
	}()

	if err := crypt.NewFromHash(e.Pass).Verify(e.Pass, pass); err != nil {
		if errors.Is(err, crypt.ErrKeyMismatch) {
			return ErrWrongPassword
		}
		return err
	}
	return nil
}
