package vcs

import (
	"path"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// treeEntry is a flattened (full path -> blob) view of a tree, used so a
// cherry-pick/squash can apply a file-level patch without re-walking
// go-git's tree objects for every changed path.
type treeEntry struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

// flattenTree walks a tree recursively into a path -> treeEntry map.
func flattenTree(storerObj storer.EncodedObjectStorer, tree *object.Tree, prefix string, out map[string]treeEntry) error {
	for _, e := range tree.Entries {
		full := path.Join(prefix, e.Name)
		if e.Mode == filemode.Dir {
			subTree, err := object.GetTree(storerObj, e.Hash)
			if err != nil {
				return err
			}
			if err := flattenTree(storerObj, subTree, full, out); err != nil {
				return err
			}
			continue
		}
		out[full] = treeEntry{hash: e.Hash, mode: e.Mode}
	}
	return nil
}

// applyFilePatch applies a single go-git file patch (add/modify/delete) onto
// a flattened path map in place. Renames are modeled as a delete of the old
// path and an add of the new one, matching git's own cherry-pick behavior
// for simple renames without content conflicts.
func applyFilePatch(files map[string]treeEntry, from, to object.DiffFile) {
	if to == nil {
		// Pure deletion.
		if from != nil {
			delete(files, from.Path())
		}
		return
	}
	files[to.Path()] = treeEntry{hash: to.Hash(), mode: to.Mode()}
	if from != nil && from.Path() != to.Path() {
		delete(files, from.Path())
	}
}

// buildTreeFromFiles reconstructs a tree object (and every intermediate
// subtree) from a flat path -> treeEntry map and stores them, returning the
// root tree's hash.
func buildTreeFromFiles(storerObj storer.EncodedObjectStorer, files map[string]treeEntry) (plumbing.Hash, error) {
	type node struct {
		entries  []object.TreeEntry
		children map[string]*node
	}
	root := &node{children: make(map[string]*node)}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		parts := splitPath(p)
		cur := root
		for i, part := range parts {
			if i == len(parts)-1 {
				cur.entries = append(cur.entries, object.TreeEntry{
					Name: part,
					Mode: files[p].mode,
					Hash: files[p].hash,
				})
				continue
			}
			next, ok := cur.children[part]
			if !ok {
				next = &node{children: make(map[string]*node)}
				cur.children[part] = next
			}
			cur = next
		}
	}

	var persist func(n *node) (plumbing.Hash, error)
	persist = func(n *node) (plumbing.Hash, error) {
		tree := &object.Tree{}
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			childHash, err := persist(n.children[name])
			if err != nil {
				return plumbing.ZeroHash, err
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{
				Name: name,
				Mode: filemode.Dir,
				Hash: childHash,
			})
		}
		tree.Entries = append(tree.Entries, n.entries...)
		sort.Slice(tree.Entries, func(i, j int) bool {
			return treeEntrySortKey(tree.Entries[i]) < treeEntrySortKey(tree.Entries[j])
		})

		obj := storerObj.NewEncodedObject()
		if err := tree.Encode(obj); err != nil {
			return plumbing.ZeroHash, err
		}
		return storerObj.SetEncodedObject(obj)
	}

	return persist(root)
}

// treeEntrySortKey mirrors git's tree-entry ordering: directories sort as
// if their name carried a trailing slash.
func treeEntrySortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range pathSplitSeq(p) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func pathSplitSeq(p string) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[start:i])
			start = i + 1
		}
	}
	out = append(out, p[start:])
	return out
}
