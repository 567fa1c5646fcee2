// Copyright 2025 Poiesic Systems
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


// Package chunk splits document text into overlapping, retrieval-sized
// pieces. Split applies a sliding window that snaps to sentence
// boundaries; SplitStructured additionally honors structural markers
// (headers, day markers, dates) and isolates table-like lines into
// dedicated pieces.
//
// All offsets reported by this package index into the whitespace-
// normalized text returned by Normalize, which callers should persist
// as the canonical document text.
package chunk
