package main

import (
	"os"

	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/xfbin"
)

func readDocument(path string) (*xfbin.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %w", path, err)
	}
	doc, err := xfbin.Read(data)
	if err != nil {
		return nil, xerrors.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
