// Copyright 2026 The Logvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logvisor

import (
	"errors"
)

var (
	ErrNotFound       = errors.New("Executable not found")
	ErrUnknownLabel   = errors.New("Unknown process label")
	ErrSpawnFailure   = errors.New("Failed to spawn process")
	ErrDuplicateLabel = errors.New("Duplicate process label")
	ErrBadManifest    = errors.New("Bad process manifest")
	ErrShutdown       = errors.New("Supervisor is shut down")
)
