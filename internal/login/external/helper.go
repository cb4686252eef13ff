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

package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/credgate/credgate/framework/module"
)

// AuthUsingHelper runs the helper binary and passes the identifier and the
// secret on its standard input, each terminated with a newline.
//
// Exit status 0 means the credentials are valid, 1 means they are not.
// Any other status is a helper failure.
func AuthUsingHelper(ctx context.Context, binaryPath, accountName string, secret []byte) error {
	if strings.ContainsAny(accountName, "\n\x00") || bytes.ContainsAny(secret, "\n\x00") {
		return module.ErrUnknownCredentials
	}

	input := make([]byte, 0, len(accountName)+len(secret)+2)
	input = append(input, accountName...)
	input = append(input, '\n')
	input = append(input, secret...)
	input = append(input, '\n')
	defer func() {
		for i := range input {
			input[i] = 0
		}
	}()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Exit code 1 is for authentication failure.
			if exitErr.ExitCode() != 1 {
				return fmt.Errorf("helperauth: %w: %v", err, strings.TrimSpace(stderr.String()))
			}
			return module.ErrUnknownCredentials
		}
		return fmt.Errorf("helperauth: process run: %w", err)
	}
	return nil
}
