package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"paper-rag/internal/models"
)

// pageLoader extracts the pages of one file. source is the bare file name
type pageLoader func(filePath, source string) ([]models.Page, error)

var loaders = map[string]pageLoader{
	".pdf":      parsePDF,
	".docx":     parseDOCX,
	".xlsx":     parseXLSX,
	".md":       parseMarkdown,
	".markdown": parseMarkdown,
	".txt":      parseText,
}

// IsSupportedExtension reports whether a loader exists for ext (".pdf", ".docx", ...)
func IsSupportedExtension(ext string) bool {
	_, ok := loaders[strings.ToLower(ext)]
	return ok
}

// LoadPDFs returns one page record per PDF page with extractable text
func LoadPDFs(dir string) ([]models.Page, error) {
	return LoadDocuments(dir, []string{".pdf"})
}

// LoadDocuments walks the top level of dir in file name order and extracts pages
// from every file whose extension (case-insensitive) is listed. The first file
// that cannot be read aborts the load.
func LoadDocuments(dir string, extensions []string) ([]models.Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, models.Classify("loader", "read dir "+dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	var pages []models.Page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !wanted[ext] {
			continue
		}
		load, ok := loaders[ext]
		if !ok {
			return nil, models.NewServiceError("loader", "load", models.ErrInvalidInput,
				fmt.Errorf("unsupported file format: %s", ext))
		}

		filePages, err := load(filepath.Join(dir, name), name)
		if err != nil {
			kind := models.ErrInvalidInput
			if errors.Is(err, os.ErrNotExist) {
				kind = models.ErrNotFound
			}
			return nil, models.NewServiceError("loader", "parse "+name, kind, err)
		}
		log.Debug().Str("file", name).Int("pages", len(filePages)).Msg("Loaded document")
		pages = append(pages, filePages...)
	}
	return pages, nil
}

func parseText(filePath, source string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.Page{{Source: source, Page: 1, Text: string(data)}}, nil
}
