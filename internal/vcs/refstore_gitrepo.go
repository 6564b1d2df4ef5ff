package vcs

import (
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	gserr "gitstack.dev/gitstack/internal/errors"
)

// WriteRef stores data as a blob object and points name at it directly.
func (r *GitRepo) WriteRef(name string, data []byte) error {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return gserr.Repof("writeref %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return gserr.Repof("writeref %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return gserr.Repof("writeref %s: %w", name, err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return gserr.Repof("writeref %s: %w", name, err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), hash)); err != nil {
		return gserr.Repof("writeref %s: %w", name, err)
	}
	return nil
}

// ReadRef reads back the blob pointed at by name, ok=false if name does not exist.
func (r *GitRepo) ReadRef(name string) ([]byte, bool, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return nil, false, nil
	}
	obj, err := r.repo.Storer.EncodedObject(plumbing.BlobObject, ref.Hash())
	if err != nil {
		return nil, false, gserr.Repof("readref %s: %w", name, err)
	}
	reader, err := obj.Reader()
	if err != nil {
		return nil, false, gserr.Repof("readref %s: %w", name, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, gserr.Repof("readref %s: %w", name, err)
	}
	return data, true, nil
}

// DeleteRef removes a ref. Deleting a ref that does not exist is not an error.
func (r *GitRepo) DeleteRef(name string) error {
	if err := r.repo.Storer.RemoveReference(plumbing.ReferenceName(name)); err != nil {
		return gserr.Repof("deleteref %s: %w", name, err)
	}
	return nil
}

// ListRefs returns every ref name under prefix, sorted.
func (r *GitRepo) ListRefs(prefix string) ([]string, error) {
	iter, err := r.repo.Storer.IterReferences()
	if err != nil {
		return nil, gserr.Repof("listrefs %s: %w", prefix, err)
	}
	var out []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(string(ref.Name()), prefix) {
			out = append(out, string(ref.Name()))
		}
		return nil
	})
	if err != nil {
		return nil, gserr.Repof("listrefs %s: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

var _ RefStore = (*GitRepo)(nil)
