package resolver

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("AutowireArguments", func() {
	It("prefers a supplied positional argument over autowiring", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "n", ClassType: ""}}}
		getter := func(string, bool) (interface{}, error) { return nil, errMissingService("Unused") }
		out, warnings, err := AutowireArguments(info, Arguments{{Value: 42}}, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(warnings).To(BeEmpty())
		Expect(out).To(Equal(Arguments{{Value: 42}}))
	})

	It("prefers a supplied named argument", func() {
		info := MethodInfo{Parameters: []ParameterInfo{
			{Name: "a", HasDefault: true},
			{Name: "b", HasDefault: true},
		}}
		getter := func(string, bool) (interface{}, error) { return nil, nil }
		out, _, err := AutowireArguments(info, Arguments{{Name: "b", Value: 2}}, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainElement(Argument{Name: "b", Value: 2}))
	})

	It("autowires a single class parameter by type", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "l", ClassType: "Logger"}}}
		getter := func(class string, single bool) (interface{}, error) {
			Expect(class).To(Equal("Logger"))
			Expect(single).To(BeTrue())
			return Name("logger"), nil
		}
		out, warnings, err := AutowireArguments(info, nil, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(warnings).To(BeEmpty())
		Expect(out).To(Equal(Arguments{{Value: Name("logger")}}))
	})

	It("collapses a MissingService to nil for a nullable parameter", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "l", ClassType: "Logger", Nullable: true}}}
		getter := func(string, bool) (interface{}, error) { return nil, errMissingService("Logger") }
		out, _, err := AutowireArguments(info, nil, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(Arguments{{Value: nil}}))
	})

	It("raises a deprecation warning for a required, unresolved parameter", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "l", ClassType: "Logger"}}}
		getter := func(string, bool) (interface{}, error) { return nil, errMissingService("Logger") }
		_, warnings, err := AutowireArguments(info, nil, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(warnings).To(ConsistOf(ContainSubstring("should have a declared value")))
	})

	It("hard-fails a required, unresolved parameter in strict mode", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "l", ClassType: "Logger"}}}
		getter := func(string, bool) (interface{}, error) { return nil, errMissingService("Logger") }
		_, _, err := AutowireArguments(info, nil, getter, true)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an intersection-typed parameter", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "x", Intersection: true}}}
		_, _, err := AutowireArguments(info, nil, func(string, bool) (interface{}, error) { return nil, nil }, false)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a union-typed parameter without a default", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "x", Union: true}}}
		_, _, err := AutowireArguments(info, nil, func(string, bool) (interface{}, error) { return nil, nil }, false)
		Expect(err).To(HaveOccurred())
	})

	It("injects an ordered list for an array-typed parameter with a class hint", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "hs", ArrayType: true, ClassType: "Handler"}}}
		getter := func(class string, single bool) (interface{}, error) {
			Expect(single).To(BeFalse())
			return []interface{}{Name("h1"), Name("h2")}, nil
		}
		out, _, err := AutowireArguments(info, nil, getter, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].Value).To(Equal([]interface{}{Name("h1"), Name("h2")}))
	})

	It("drains the positional tail into a variadic parameter", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "rest", Variadic: true}}}
		out, _, err := AutowireArguments(info, Arguments{{Value: 1}, {Value: 2}}, func(string, bool) (interface{}, error) { return nil, nil }, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(Arguments{{Value: 1}, {Value: 2}}))
	})

	It("appends trailing positional extras beyond the declared parameters", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "a", HasDefault: true}}}
		out, _, err := AutowireArguments(info, Arguments{{Value: 1}, {Value: 2}}, func(string, bool) (interface{}, error) { return nil, nil }, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(Arguments{{Value: 1}, {Value: 2}}))
	})

	It("fails on a named argument matching no declared parameter", func() {
		info := MethodInfo{Parameters: []ParameterInfo{{Name: "a", HasDefault: true}}}
		_, _, err := AutowireArguments(info, Arguments{{Name: "bogus", Value: 1}}, func(string, bool) (interface{}, error) { return nil, nil }, false)
		Expect(err).To(HaveOccurred())
	})
})
