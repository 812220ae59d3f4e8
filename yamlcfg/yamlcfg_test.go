package yamlcfg_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sinuca-go/yamlcfg"
)

func TestYamlcfg(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Yamlcfg Suite")
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = Describe("Parse", func() {
	It("preserves mapping insertion order", func() {
		dir := GinkgoT().TempDir()
		path := writeFile(dir, "cfg.yaml", "zebra: 1\napple: 2\nmango: 3\n")

		root, err := yamlcfg.Parse(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(root.Mapping.Keys).To(Equal([]string{"zebra", "apple", "mango"}))
	})

	It("records source location on every node", func() {
		dir := GinkgoT().TempDir()
		path := writeFile(dir, "cfg.yaml", "a: 1\nb: 2\n")

		root, err := yamlcfg.Parse(path)
		Expect(err).NotTo(HaveOccurred())

		v, ok := root.Mapping.Get("b")
		Expect(ok).To(BeTrue())
		Expect(v.Location.Line).To(Equal(2))
		Expect(v.Location.File).To(Equal(path))
	})

	It("splices a single include path into the current mapping", func() {
		dir := GinkgoT().TempDir()
		writeFile(dir, "base.yaml", "shared: 42\n")
		path := writeFile(dir, "cfg.yaml", "include: base.yaml\nlocal: 1\n")

		root, err := yamlcfg.Parse(path)
		Expect(err).NotTo(HaveOccurred())

		shared, ok := root.Mapping.Get("shared")
		Expect(ok).To(BeTrue())
		Expect(shared.Scalar).To(Equal("42"))
	})

	It("splices an array of include paths in order without overwriting keys already present", func() {
		dir := GinkgoT().TempDir()
		writeFile(dir, "a.yaml", "x: from_a\n")
		writeFile(dir, "b.yaml", "x: from_b\ny: from_b\n")
		path := writeFile(dir, "cfg.yaml", "include: [a.yaml, b.yaml]\n")

		root, err := yamlcfg.Parse(path)
		Expect(err).NotTo(HaveOccurred())

		x, _ := root.Mapping.Get("x")
		Expect(x.Scalar).To(Equal("from_a"), "earlier includes win over later ones")

		y, ok := root.Mapping.Get("y")
		Expect(ok).To(BeTrue())
		Expect(y.Scalar).To(Equal("from_b"))
	})

	It("resolves includes recursively", func() {
		dir := GinkgoT().TempDir()
		writeFile(dir, "deepest.yaml", "z: 1\n")
		writeFile(dir, "middle.yaml", "include: deepest.yaml\ny: 2\n")
		path := writeFile(dir, "cfg.yaml", "include: middle.yaml\nx: 3\n")

		root, err := yamlcfg.Parse(path)
		Expect(err).NotTo(HaveOccurred())

		for _, key := range []string{"x", "y", "z"} {
			_, ok := root.Mapping.Get(key)
			Expect(ok).To(BeTrue(), "missing key %s", key)
		}
	})

	It("reports a location-carrying error for a non-string, non-array include value", func() {
		dir := GinkgoT().TempDir()
		path := writeFile(dir, "cfg.yaml", "include:\n  nested: true\n")

		_, err := yamlcfg.Parse(path)
		Expect(err).To(HaveOccurred())

		var parseErr *yamlcfg.ParseError
		Expect(err).To(BeAssignableToTypeOf(parseErr))
	})
})

var _ = Describe("Config typed accessors", func() {
	var cfg *yamlcfg.Config

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		path := writeFile(dir, "cfg.yaml", `
name: my_cache
enabled: yes
ways: 4
latency: 2.5
peer: *shared_mem
nested:
  inner_key: hello
list:
  - 1
  - 2
shared_mem: &shared_mem
  class: simple_memory
`)
		root, err := yamlcfg.Parse(path)
		Expect(err).NotTo(HaveOccurred())
		doc := yamlcfg.NewDocument(root)
		cfg = yamlcfg.NewConfig(root, doc)
	})

	It("parses bool accepted spellings", func() {
		v, err := cfg.Bool("enabled", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeTrue())
	})

	It("parses integer", func() {
		v, err := cfg.Integer("ways", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(4)))
	})

	It("parses floating", func() {
		v, err := cfg.Floating("latency", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(2.5))
	})

	It("parses string", func() {
		v, err := cfg.String("name", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("my_cache"))
	})

	It("returns a missing-required diagnostic with file:line:col", func() {
		_, err := cfg.Integer("does_not_exist", true)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("does_not_exist"))
		Expect(err.Error()).To(ContainSubstring("cfg.yaml"))
	})

	It("returns zero value, no error for a missing optional parameter", func() {
		v, err := cfg.Integer("does_not_exist", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(0)))
	})

	It("resolves an alias component reference through the document's anchor index", func() {
		ref, err := cfg.ComponentReference("peer", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Kind).To(Equal(yamlcfg.RefInstance))
		Expect(ref.Instance).To(Equal("shared_mem"))

		target, ok := cfg.Document().Resolve(&yamlcfg.Node{Kind: yamlcfg.KindAlias, Alias: ref.Instance})
		Expect(ok).To(BeTrue())
		Expect(target.Kind).To(Equal(yamlcfg.KindMapping))
	})

	It("reads an array of nodes", func() {
		arr, err := cfg.Array("list", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(arr).To(HaveLen(2))
		Expect(arr[0].Scalar).To(Equal("1"))
	})

	It("forks a nested mapping into a new configuration context", func() {
		nested, ok := cfg.Node().Mapping.Get("nested")
		Expect(ok).To(BeTrue())

		sub, err := cfg.Fork(nested)
		Expect(err).NotTo(HaveOccurred())

		v, err := sub.String("inner_key", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("hello"))
	})
})
