package builder_test

//go:generate mockgen -write_package_comment=false -package=builder_test -destination=mock_link_test.go github.com/sarchlab/sinuca-go/link Linkable

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sinuca-go/builder"
	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/yamlcfg"
)

func TestBuilder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Builder Suite")
}

// fakeComponent records every Configure call it receives.
type fakeComponent struct {
	name         string
	params       map[string]link.ConfigValue
	finishErr    error
	finishCalled bool
}

func newFakeComponent(name string) link.Linkable {
	return &fakeComponent{name: name, params: make(map[string]link.ConfigValue)}
}

func (f *fakeComponent) Name() string { return f.name }
func (f *fakeComponent) Configure(key string, v link.ConfigValue) error {
	f.params[key] = v
	return nil
}
func (f *fakeComponent) FinishSetup() error          { f.finishCalled = true; return f.finishErr }
func (f *fakeComponent) Clock()                      {}
func (f *fakeComponent) PosClock()                   {}
func (f *fakeComponent) PrintStatistics() []link.Stat { return nil }

// failingComponent always fails FinishSetup, to test build-abort behavior.
func newFailingComponent(name string) link.Linkable {
	return &fakeComponent{name: name, params: make(map[string]link.ConfigValue), finishErr: errors.New("boom")}
}

func parse(dir, content string) *yamlcfg.Node {
	path := filepath.Join(dir, "cfg.yaml")
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	root, err := yamlcfg.Parse(path)
	Expect(err).NotTo(HaveOccurred())
	return root
}

func registryWith(classes ...string) *builder.Registry {
	r := builder.NewRegistry(nil)
	for _, c := range classes {
		r.Register(c, newFakeComponent)
	}
	return r
}

var _ = Describe("Build", func() {
	It("instantiates a simple named definition and wires scalar parameters", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
mem:
  class: simple_memory
  latency: 10
  enabled: true
  ratio: 0.5
instantiate: mem
`)
		eng := newFakeComponent("engine")
		components, err := builder.Build(root, eng, registryWith("simple_memory"))
		Expect(err).NotTo(HaveOccurred())
		Expect(components).To(HaveLen(2))

		mem := components[1].(*fakeComponent)
		Expect(mem.params["latency"].Integer).To(Equal(int64(10)))
		Expect(mem.params["enabled"].Boolean).To(BeTrue())
		Expect(mem.params["ratio"].Number).To(Equal(0.5))
	})

	It("resolves a forward reference to a definition declared later in the file", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
cache:
  class: cache
  backing: mem
mem:
  class: simple_memory
instantiate: cache
`)
		eng := newFakeComponent("engine")
		components, err := builder.Build(root, eng, registryWith("cache", "simple_memory"))
		Expect(err).NotTo(HaveOccurred())

		cache := components[1].(*fakeComponent)
		backing := cache.params["backing"]
		Expect(backing.Kind).To(Equal(link.ConfigComponentRef))
		Expect(backing.Component).NotTo(BeNil())
	})

	It("shares one instance across two aliases referencing the same anchor", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
core_a:
  class: core
  mem: *shared
core_b:
  class: core
  mem: *shared
shared_mem: &shared
  class: simple_memory
instantiate:
  class: group
  a: core_a
  b: core_b
`)
		eng := newFakeComponent("engine")
		registry := registryWith("core", "simple_memory", "group")
		components, err := builder.Build(root, eng, registry)
		Expect(err).NotTo(HaveOccurred())

		var coreA, coreB *fakeComponent
		for _, c := range components {
			fc, ok := c.(*fakeComponent)
			if !ok {
				continue
			}
			switch fc.name {
			case "core_a":
				coreA = fc
			case "core_b":
				coreB = fc
			}
		}
		Expect(coreA).NotTo(BeNil())
		Expect(coreB).NotTo(BeNil())
		Expect(coreA.params["mem"].Component).To(BeIdenticalTo(coreB.params["mem"].Component), "both cores alias the same shared_mem anchor")
	})

	It("materializes a fresh instance for every definition-reference use, never sharing", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
core_a:
  class: core
  mem: mem_def
core_b:
  class: core
  mem: mem_def
mem_def:
  class: simple_memory
instantiate:
  class: group
  a: core_a
  b: core_b
`)
		eng := newFakeComponent("engine")
		registry := registryWith("core", "simple_memory", "group")
		components, err := builder.Build(root, eng, registry)
		Expect(err).NotTo(HaveOccurred())

		var coreA, coreB *fakeComponent
		for _, c := range components {
			fc := c.(*fakeComponent)
			switch fc.name {
			case "core_a":
				coreA = fc
			case "core_b":
				coreB = fc
			}
		}
		Expect(coreA).NotTo(BeNil())
		Expect(coreB).NotTo(BeNil())
		Expect(coreA.params["mem"].Component).NotTo(BeIdenticalTo(coreB.params["mem"].Component))
	})

	It("reports a dangling definition reference", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
instantiate: never_defined
`)
		eng := newFakeComponent("engine")
		_, err := builder.Build(root, eng, builder.NewRegistry(nil))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("never_defined"))
	})

	It("reports multiple definitions of the same name as an error", func() {
		dir := GinkgoT().TempDir()
		// "mem" is defined at top level, then a nested parameter value under
		// "cache" reuses the same name — defineOrFillDefinition treats both
		// the same way regardless of nesting depth, so the second fill
		// collides with the first.
		root := parse(dir, `
mem:
  class: simple_memory
cache:
  class: cache
  mem:
    class: simple_memory
instantiate: cache
`)
		eng := newFakeComponent("engine")
		_, err := builder.Build(root, eng, registryWith("simple_memory", "cache"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("mem"))
	})

	It("registers a nested inline mapping parameter value as a named, reusable definition", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
cache:
  class: cache
  prefetcher:
    class: stride_prefetcher
    degree: 2
user2:
  class: core
  pref: prefetcher
instantiate:
  class: group
  a: cache
  b: user2
`)
		eng := newFakeComponent("engine")
		registry := registryWith("cache", "stride_prefetcher", "core", "group")
		_, err := builder.Build(root, eng, registry)
		Expect(err).NotTo(HaveOccurred())
	})

	It("prefers a user-extension registry entry over the default", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
mem:
  class: simple_memory
instantiate: mem
`)
		var usedOverride bool
		defaultRegistry := registryWith("simple_memory")
		userRegistry := builder.NewRegistry(defaultRegistry)
		userRegistry.Register("simple_memory", func(name string) link.Linkable {
			usedOverride = true
			return newFakeComponent(name)
		})

		eng := newFakeComponent("engine")
		_, err := builder.Build(root, eng, userRegistry)
		Expect(err).NotTo(HaveOccurred())
		Expect(usedOverride).To(BeTrue())
	})

	It("resolves the reserved ENGINE alias to instance 0", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
fetcher:
  class: fetcher
  target: *ENGINE
instantiate: fetcher
`)
		eng := newFakeComponent("engine")
		components, err := builder.Build(root, eng, registryWith("fetcher"))
		Expect(err).NotTo(HaveOccurred())

		fetcher := components[1].(*fakeComponent)
		Expect(fetcher.params["target"].Component).To(BeIdenticalTo(link.Linkable(eng)))
	})

	It("aborts the whole build when any instance's FinishSetup fails", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
mem:
  class: broken
instantiate: mem
`)
		registry := builder.NewRegistry(nil)
		registry.Register("broken", newFailingComponent)

		eng := newFakeComponent("engine")
		_, err := builder.Build(root, eng, registry)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("FinishSetup"))
	})

	It("reports an unknown class", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
mem:
  class: does_not_exist
instantiate: mem
`)
		eng := newFakeComponent("engine")
		_, err := builder.Build(root, eng, builder.NewRegistry(nil))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("does_not_exist"))
	})
})

var _ = Describe("Build against a mocked component", func() {
	It("drives Configure and FinishSetup through gomock expectations, mocking the substrate the way the reference driver tests mock ports and devices", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
mem:
  class: simple_memory
  latency: 10
  enabled: true
instantiate: mem
`)
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		mockMem := NewMockLinkable(mockCtrl)
		mockMem.EXPECT().Configure("latency", link.Int(10)).Return(nil)
		mockMem.EXPECT().Configure("enabled", link.Bool(true)).Return(nil)
		mockMem.EXPECT().FinishSetup().Return(nil)

		registry := builder.NewRegistry(nil)
		registry.Register("simple_memory", func(string) link.Linkable { return mockMem })

		eng := newFakeComponent("engine")
		components, err := builder.Build(root, eng, registry)
		Expect(err).NotTo(HaveOccurred())
		Expect(components).To(ContainElement(link.Linkable(mockMem)))
	})
})

var _ = Describe("Array parameters", func() {
	It("translates an array of scalars element-wise", func() {
		dir := GinkgoT().TempDir()
		root := parse(dir, `
mem:
  class: simple_memory
  ports: [1, 2, 3]
instantiate: mem
`)
		eng := newFakeComponent("engine")
		components, err := builder.Build(root, eng, registryWith("simple_memory"))
		Expect(err).NotTo(HaveOccurred())

		mem := components[1].(*fakeComponent)
		arr := mem.params["ports"].Array
		Expect(arr).To(HaveLen(3))
		Expect(arr[1].Integer).To(Equal(int64(2)))
	})
})
