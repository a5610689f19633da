// Copyright 2025 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
)

// ValidateUploadItem validates an UploadItem according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Path must not be empty
//   - Source must be a known value
//
// NOT validated:
//   - Path segment count (paths without a correlation segment fall back to
//     UnknownTaskKey instead of being rejected)
//   - Meta (the sidecar may legitimately be sparse)
func ValidateUploadItem(item *UploadItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidUploadItem)
	}

	if item.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUploadItem, ErrEmptyContent)
	}

	if item.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUploadItem, ErrEmptyPath)
	}

	if err := ValidateSource(item.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUploadItem, err)
	}

	return nil
}

// ValidateSource validates that a Source has a known value.
func ValidateSource(source Source) error {
	if _, ok := sourceValues[source]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidSource, source)
	}
	return nil
}
