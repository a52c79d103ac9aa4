package resolver

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type stubDefinition struct {
	name       string
	typ        string
	descriptor string
}

func (d *stubDefinition) Name() string             { return d.name }
func (d *stubDefinition) Type() string              { return d.typ }
func (d *stubDefinition) Descriptor() string        { return d.descriptor }
func (d *stubDefinition) ResolveType(*Resolver) error { return nil }
func (d *stubDefinition) Complete(*Resolver) error    { return nil }

var _ = Describe("completeException", func() {
	It("prefixes the message with the definition's descriptor", func() {
		def := &stubDefinition{name: "one", descriptor: "Service 'one'"}
		err := completeException(errClassNotFound("Foo"), def)
		Expect(err.Error()).To(Equal("[Service 'one']\nClass Foo doesn't exist."))
	})

	It("is idempotent when the message already carries a descriptor", func() {
		def := &stubDefinition{name: "one", descriptor: "Service 'one'"}
		once := completeException(errClassNotFound("Foo"), def)
		twice := completeException(once, def)
		Expect(twice.Error()).To(Equal(once.Error()))
	})

	It("strips fully-qualified prefixes from Class::method substrings", func() {
		def := &stubDefinition{name: "one", descriptor: "Service 'one'"}
		err := completeException(errMethodNotCallable(`app/pkg.Factory`, "create"), def)
		Expect(err.Error()).To(ContainSubstring("Factory::create()"))
		Expect(err.Error()).NotTo(ContainSubstring("app/pkg."))
	})
})

var _ = Describe("appendRelated", func() {
	It("appends a Related to suffix naming the entity", func() {
		err := appendRelated(errArgumentMismatch("bad"), StringEntity("Foo"), false)
		Expect(err.Error()).To(Equal("bad\nRelated to Foo()"))
	})

	It("adds an in setup suffix when currentServiceAllowed is true", func() {
		err := appendRelated(errArgumentMismatch("bad"), StringEntity("Foo"), true)
		Expect(err.Error()).To(Equal("bad\nRelated to Foo() in setup"))
	})

	It("is idempotent once a Related to suffix is present", func() {
		once := appendRelated(errArgumentMismatch("bad"), StringEntity("Foo"), false)
		twice := appendRelated(once, StringEntity("Bar"), false)
		Expect(twice.Error()).To(Equal(once.Error()))
	})
})

var _ = Describe("entityToString", func() {
	It("formats a reference entity", func() {
		Expect(entityToString(ReferenceEntity(Name("logger")), false)).To(Equal("@logger"))
	})

	It("formats a call entity with a class head", func() {
		e := CallEntity(ClassHead("Factory"), "create")
		Expect(entityToString(e, false)).To(Equal("Factory::create()"))
	})

	It("formats a global function call with no head", func() {
		e := CallEntity(GlobalHead(), "strtoupper")
		Expect(entityToString(e, false)).To(Equal("strtoupper()"))
	})

	It("omits the trailing parens for a string entity used as an inner head", func() {
		Expect(entityToString(StringEntity("Foo"), true)).To(Equal("Foo"))
	})
})
