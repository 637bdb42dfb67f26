package script

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Metadata describes a finished DDL script.
type Metadata struct {
	Location   string
	Size       int64
	Checksum   string
	Statements int
	StartedAt  time.Time
	ClosedAt   time.Time
}

// Script is the DDL output stream shared by all workers. Every write and
// every block commit happens under one mutex.
type Script struct {
	mu         sync.Mutex
	w          io.Writer
	closer     io.Closer
	path       string
	statements int
	started    time.Time
}

func New(w io.Writer) *Script {
	return &Script{w: w, started: time.Now()}
}

// Create opens the script file at path. An empty path writes to stdout.
func Create(path string) (*Script, error) {
	if strings.TrimSpace(path) == "" {
		return New(os.Stdout), nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create DDL script: %w", err)
	}

	s := New(file)
	s.closer = file
	s.path = path
	return s, nil
}

func (s *Script) Banner(title string) {
	s.write(formatBanner(title), 0)
}

func (s *Script) Section(title string) {
	s.write(formatSection(title), 0)
}

func (s *Script) Statement(sql string, neutralized bool) {
	s.write(formatStatement(sql, neutralized), 1)
}

// Block returns a buffer whose content reaches the script in one piece on Commit.
func (s *Script) Block() *Block {
	return &Block{script: s}
}

// Close flushes and closes file-backed scripts and reports their metadata.
// Stdout scripts return metadata without size or checksum.
func (s *Script) Close() (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := &Metadata{
		Location:   s.path,
		Statements: s.statements,
		StartedAt:  s.started,
		ClosedAt:   time.Now(),
	}
	if s.closer == nil {
		meta.Location = "stdout"
		return meta, nil
	}

	if err := s.closer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close DDL script: %w", err)
	}
	s.closer = nil

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DDL script metadata: %w", err)
	}
	checksum, err := fileChecksum(s.path)
	if err != nil {
		return nil, err
	}
	meta.Size = info.Size()
	meta.Checksum = checksum
	return meta, nil
}

func (s *Script) write(text string, statements int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, text)
	s.statements += statements
}

// Block collects the statements of one table.
type Block struct {
	script     *Script
	buf        bytes.Buffer
	statements int
}

func (b *Block) Banner(title string) {
	b.buf.WriteString(formatBanner(title))
}

func (b *Block) Section(title string) {
	b.buf.WriteString(formatSection(title))
}

func (b *Block) Statement(sql string, neutralized bool) {
	b.buf.WriteString(formatStatement(sql, neutralized))
	b.statements++
}

func (b *Block) Commit() {
	if b.buf.Len() == 0 {
		return
	}
	b.script.write(b.buf.String(), b.statements)
	b.buf.Reset()
	b.statements = 0
}

func formatBanner(title string) string {
	return "\n--\n-- " + title + "\n--\n"
}

func formatSection(title string) string {
	return "\n-- " + title + "\n"
}

func formatStatement(sql string, neutralized bool) string {
	if neutralized {
		sql = Neutralize(sql)
	}
	return sql + ";\n"
}

// Neutralize comments out every line of sql.
func Neutralize(sql string) string {
	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "--") {
			lines[i] = "--" + line
		}
	}
	return strings.Join(lines, "\n")
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DDL script: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
