// Package store reads and writes the version-controlled security group
// document. Edits are made on the YAML node tree so keys the sync does not
// own keep their values, order and comments.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/eleven-am/sgsync/internal/domain"
)

const (
	keyRules = "rules"
	keyHTTP  = "http"
	keySSH   = "ssh"
)

type Document struct {
	root *yaml.Node
	raw  []byte
}

func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return doc, nil
}

func Parse(raw []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		root.Kind = yaml.DocumentNode
		root.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	if len(root.Content) != 1 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level of document must be a mapping")
	}
	if rules := lookup(root.Content[0], keyRules); rules != nil && rules.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%q must be a mapping", keyRules)
	}
	return &Document{root: &root, raw: raw}, nil
}

func (d *Document) HTTP() []domain.CIDR {
	return d.cidrs(keyHTTP)
}

func (d *Document) SSH() []domain.CIDR {
	return d.cidrs(keySSH)
}

func (d *Document) SetHTTP(cidrs []domain.CIDR) {
	setKey(d.rules(true), keyHTTP, sequence(cidrs))
}

// EnsureSSH writes def to rules.ssh only when the key is absent. It reports
// whether the document changed.
func (d *Document) EnsureSSH(def []domain.CIDR) bool {
	if lookup(d.rules(true), keySSH) != nil {
		return false
	}
	setKey(d.rules(true), keySSH, sequence(def))
	return true
}

// Original returns the bytes the document was loaded from.
func (d *Document) Original() []byte {
	return d.raw
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document through a temporary file in the same directory
// so a failed write never truncates the existing file.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config %s: %w", path, err)
	}
	d.raw = data
	return nil
}

// Diff renders a unified diff between two versions of the document. It is
// empty when they are identical.
func Diff(name string, before, after []byte) string {
	if bytes.Equal(before, after) {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: name,
		ToFile:   name + " (new)",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

func (d *Document) cidrs(key string) []domain.CIDR {
	rules := d.rules(false)
	if rules == nil {
		return nil
	}
	node := lookup(rules, key)
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil
	}
	var out []domain.CIDR
	for _, item := range node.Content {
		if item.Kind == yaml.ScalarNode {
			out = append(out, domain.CIDR(item.Value))
		}
	}
	return out
}

func (d *Document) rules(create bool) *yaml.Node {
	top := d.root.Content[0]
	rules := lookup(top, keyRules)
	if rules == nil && create {
		rules = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setKey(top, keyRules, rules)
	}
	return rules
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func setKey(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func sequence(cidrs []domain.CIDR) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, c := range cidrs {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(c)})
	}
	return seq
}
