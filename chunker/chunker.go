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


// Package chunker splits markdown text into size-bounded chunks while
// preserving document structure. Section headers are carried into every
// chunk produced under them so each chunk remains self-describing, and
// code blocks, tables, and lists are kept intact where possible.
package chunker

import "strings"

// DefaultChunkSize is the default maximum chunk size in characters.
const DefaultChunkSize = 4000

// Chunk splits markdown content into chunks of at most chunkSize
// characters. Splitting happens at section header boundaries first, then
// at paragraph boundaries within oversized sections. Code blocks and
// lists are never split; a table larger than the budget is split by rows
// with its header row repeated on continuation chunks. A single
// paragraph larger than the budget is hard-split at the character limit
// as a last resort.
//
// Chunking is deterministic: identical input and size produce identical
// output.
func Chunk(content string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var chunks []string
	lines := strings.Split(content, "\n")
	i := 0

	// Ancestor headers carried across sections so every chunk stays
	// self-describing. Entering a level-N header pops deeper levels.
	var headerStack []string

	addChunk := func(chunk string) {
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}

	for i < len(lines) {
		var currentChunk []string
		currentSize := 0

		// Collect section headers at the start, updating the ancestor stack
		for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "#") {
			headerLine := lines[i]
			level := headerLevel(headerLine)
			for len(headerStack) > 0 && headerLevel(headerStack[len(headerStack)-1]) >= level {
				headerStack = headerStack[:len(headerStack)-1]
			}
			headerStack = append(headerStack, headerLine)
			i++
		}
		sectionHeaders := make([]string, len(headerStack))
		copy(sectionHeaders, headerStack)
		for _, h := range sectionHeaders {
			currentSize += len(h) + 1
		}

		headerSize := 0
		if len(sectionHeaders) > 0 {
			headerSize = len(strings.Join(sectionHeaders, "\n")) + 1
		}

		// Process content within this section
		for i < len(lines) {
			line := lines[i]
			stripped := strings.TrimSpace(line)

			// Stop at the next section header
			if strings.HasPrefix(stripped, "#") {
				break
			}

			// Code blocks stay intact
			if strings.HasPrefix(stripped, "```") {
				codeBlock := []string{line}
				codeSize := len(line) + 1
				i++

				for i < len(lines) {
					codeLine := lines[i]
					codeBlock = append(codeBlock, codeLine)
					codeSize += len(codeLine) + 1
					i++
					if strings.HasPrefix(strings.TrimSpace(codeLine), "```") {
						break
					}
				}

				if currentSize+codeSize > chunkSize && len(currentChunk) > 0 {
					addChunk(finalizeChunk(currentChunk, sectionHeaders))
					currentChunk = codeBlock
					currentSize = headerSize + codeSize
				} else {
					currentChunk = append(currentChunk, codeBlock...)
					currentSize += codeSize
				}
				continue
			}

			// Tables are split by rows with the header row repeated
			if strings.Contains(line, "|") && stripped != "" {
				var tableLines []string
				tableHeader := ""
				tableSize := 0

				for i < len(lines) && (strings.Contains(lines[i], "|") || strings.TrimSpace(lines[i]) == "") {
					tableLine := lines[i]
					if strings.Contains(tableLine, "|") {
						tableLines = append(tableLines, tableLine)
						tableSize += len(tableLine) + 1
						if tableHeader == "" {
							tableHeader = tableLine
						}
					} else {
						// Blank line ends the table unless another row follows
						if i+1 < len(lines) && strings.Contains(lines[i+1], "|") {
							tableLines = append(tableLines, tableLine)
							tableSize += len(tableLine) + 1
						} else {
							break
						}
					}
					i++
				}

				if currentSize+tableSize <= chunkSize {
					currentChunk = append(currentChunk, tableLines...)
					currentSize += tableSize
					continue
				}

				// Table does not fit; flush the current chunk first
				if len(currentChunk) > 0 {
					addChunk(finalizeChunk(currentChunk, sectionHeaders))
					currentChunk = nil
					currentSize = headerSize
				}

				var tableChunk []string
				tableChunkSize := 0
				firstTableChunk := true

				for _, tableLine := range tableLines {
					lineSize := len(tableLine) + 1

					if tableChunkSize+lineSize > chunkSize && len(tableChunk) > 0 {
						if firstTableChunk {
							addChunk(finalizeChunk(tableChunk, sectionHeaders))
							firstTableChunk = false
						} else {
							withHeader := tableChunk
							if tableHeader != "" {
								withHeader = append([]string{tableHeader}, tableChunk...)
							}
							addChunk(finalizeChunk(withHeader, sectionHeaders))
						}
						tableChunk = []string{tableLine}
						tableChunkSize = lineSize
					} else {
						tableChunk = append(tableChunk, tableLine)
						tableChunkSize += lineSize
					}
				}

				if len(tableChunk) > 0 {
					if firstTableChunk {
						currentChunk = append(currentChunk, tableChunk...)
						currentSize += tableChunkSize
					} else {
						withHeader := tableChunk
						if tableHeader != "" {
							withHeader = append([]string{tableHeader}, tableChunk...)
						}
						addChunk(finalizeChunk(withHeader, sectionHeaders))
					}
				}
				continue
			}

			// Lists stay together, including indented continuations
			if isListItem(stripped) {
				var listLines []string
				listSize := 0

				for i < len(lines) {
					listLine := lines[i]
					listStripped := strings.TrimSpace(listLine)

					if isListItem(listStripped) ||
						strings.HasPrefix(listLine, "  ") || strings.HasPrefix(listLine, "\t") ||
						listStripped == "" {
						listLines = append(listLines, listLine)
						listSize += len(listLine) + 1
						i++

						// A blank line ends the list unless another item follows
						if listStripped == "" && i < len(lines) {
							if !isListItem(strings.TrimSpace(lines[i])) {
								break
							}
						}
					} else {
						break
					}
				}

				if currentSize+listSize > chunkSize && len(currentChunk) > 0 {
					addChunk(finalizeChunk(currentChunk, sectionHeaders))
					currentChunk = listLines
					currentSize = headerSize + listSize
				} else {
					currentChunk = append(currentChunk, listLines...)
					currentSize += listSize
				}
				continue
			}

			// Paragraphs collect until a blank line or structural element
			var paragraphLines []string
			paragraphSize := 0

			for i < len(lines) {
				paraLine := lines[i]
				paraStripped := strings.TrimSpace(paraLine)

				if strings.HasPrefix(paraStripped, "#") ||
					isListItem(paraStripped) ||
					strings.HasPrefix(paraStripped, "```") ||
					strings.Contains(paraLine, "|") {
					break
				}

				paragraphLines = append(paragraphLines, paraLine)
				paragraphSize += len(paraLine) + 1
				i++

				if paraStripped == "" {
					break
				}
			}

			if len(paragraphLines) == 0 {
				continue
			}

			// Last resort: hard-split a paragraph that alone exceeds the budget
			if paragraphSize > chunkSize {
				if len(currentChunk) > 0 {
					addChunk(finalizeChunk(currentChunk, sectionHeaders))
					currentChunk = nil
					currentSize = headerSize
				}
				budget := chunkSize - headerSize
				if budget < 1 {
					budget = chunkSize
				}
				for _, piece := range hardSplit(strings.Join(paragraphLines, "\n"), budget) {
					addChunk(finalizeChunk([]string{piece}, sectionHeaders))
				}
				continue
			}

			if currentSize+paragraphSize > chunkSize && len(currentChunk) > 0 {
				addChunk(finalizeChunk(currentChunk, sectionHeaders))
				currentChunk = paragraphLines
				currentSize = headerSize + paragraphSize
			} else {
				currentChunk = append(currentChunk, paragraphLines...)
				currentSize += paragraphSize
			}
		}

		// Finalize any remaining content in the current chunk
		if len(currentChunk) > 0 {
			addChunk(finalizeChunk(currentChunk, sectionHeaders))
		}
	}

	return chunks
}

// finalizeChunk prepends section headers to chunk lines. A chunk with
// no body content (headers followed only by blank lines) is dropped.
func finalizeChunk(chunkLines, sectionHeaders []string) string {
	hasBody := false
	for _, line := range chunkLines {
		if strings.TrimSpace(line) != "" {
			hasBody = true
			break
		}
	}
	if !hasBody {
		return ""
	}
	parts := make([]string, 0, len(sectionHeaders)+len(chunkLines))
	parts = append(parts, sectionHeaders...)
	parts = append(parts, chunkLines...)
	return strings.Join(parts, "\n")
}

// headerLevel counts leading '#' characters of a markdown header line.
func headerLevel(line string) int {
	stripped := strings.TrimSpace(line)
	level := 0
	for level < len(stripped) && stripped[level] == '#' {
		level++
	}
	return level
}

// isListItem reports whether a trimmed line starts a bullet or numbered
// list item.
func isListItem(stripped string) bool {
	if stripped == "" {
		return false
	}
	switch stripped[0] {
	case '-', '*', '+':
		return true
	}
	if stripped[0] >= '0' && stripped[0] <= '9' {
		end := len(stripped)
		if end > 5 {
			end = 5
		}
		return strings.Contains(stripped[:end], ".")
	}
	return false
}

// hardSplit cuts text into pieces no larger than budget bytes without
// splitting multi-byte runes.
func hardSplit(text string, budget int) []string {
	var pieces []string
	for len(text) > budget {
		cut := budget
		// Back up to a rune boundary
		for cut > 0 && (text[cut]&0xC0) == 0x80 {
			cut--
		}
		if cut == 0 {
			cut = budget
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}
