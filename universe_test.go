package resolver

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type hintManager struct{}

func newHintManager(handlers []interface{}) *hintManager { return &hintManager{} }

var _ = Describe("ArrayElementHint", func() {
	It("is empty until registered", func() {
		u := NewReflectUniverse()
		_, ok := u.ArrayElementHint("Manager", "__construct", 0)
		Expect(ok).To(BeFalse())
	})

	It("fills a reflected array parameter's empty ClassType as a fallback", func() {
		u := NewReflectUniverse()
		u.RegisterClass("Manager", &hintManager{})
		u.RegisterConstructor("Manager", newHintManager)

		// Before the hint is registered, reflection alone can't recover an
		// element class for []interface{}.
		before, ok := u.Constructor("Manager")
		Expect(ok).To(BeTrue())
		Expect(before.Parameters[0].ArrayType).To(BeTrue())
		Expect(before.Parameters[0].ClassType).To(Equal(""))

		u.RegisterArrayHint("Manager", "__construct", 0, "Handler")

		after, ok := u.Constructor("Manager")
		Expect(ok).To(BeTrue())
		Expect(after.Parameters[0].ArrayType).To(BeTrue())
		Expect(after.Parameters[0].ClassType).To(Equal("Handler"))
	})

	It("recovers the hint from a doc comment via LoadArrayHintsFromSource", func() {
		u := NewReflectUniverse()
		u.RegisterClass("Manager", &hintManager{})
		u.RegisterConstructor("Manager", newHintManager)

		// The fixture's function is named NewManager and takes its own
		// declared parameter name "handlers"; neither has to match this
		// test's local newHintManager/handlers, since the class/method
		// keys (not the Go function's own name) are what the resolver
		// looks the hint up by.
		err := u.LoadArrayHintsFromSource("testdata/manager_source.go", "Manager", "__construct", "NewManager")
		Expect(err).NotTo(HaveOccurred())

		elem, ok := u.ArrayElementHint("Manager", "__construct", 0)
		Expect(ok).To(BeTrue())
		Expect(elem).To(Equal("Handler"))

		info, ok := u.Constructor("Manager")
		Expect(ok).To(BeTrue())
		Expect(info.Parameters[0].ClassType).To(Equal("Handler"))
	})

	It("autowires an array parameter end to end once the hint fills its ClassType", func() {
		u := NewReflectUniverse()
		u.RegisterClass("Manager", &hintManager{})
		u.RegisterConstructor("Manager", newHintManager)
		u.RegisterArrayHint("Manager", "__construct", 0, "Handler")

		ctor, ok := u.Constructor("Manager")
		Expect(ok).To(BeTrue())

		getter := func(class string, single bool) (interface{}, error) {
			Expect(class).To(Equal("Handler"))
			Expect(single).To(BeFalse())
			return []interface{}{Name("h1"), Name("h2")}, nil
		}
		out, _, err := AutowireArguments(ctor, nil, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(Arguments{{Value: []interface{}{Name("h1"), Name("h2")}}}))
	})
})
