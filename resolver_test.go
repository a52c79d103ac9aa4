package resolver_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/godicore/resolver"
	"github.com/godicore/resolver/dicoretest"
)

// Factory and Obj mirror a typical "creator calls a helper which calls a
// helper" chain: Factory.Create() builds an Obj, Factory.Mark() flags one,
// and Obj.Foo() is a fluent method used to exercise nested-statement heads.
type Factory struct{}

func NewFactory() *Factory      { return &Factory{} }
func (f *Factory) Create() *Obj { return &Obj{} }
func (f *Factory) Mark(o *Obj)  {}

type Obj struct{}

func (o *Obj) Foo(x int) *Obj { return o }

type Logger struct{}

func NewLogger() *Logger { return &Logger{} }

type App struct{}

func NewApp(l *Logger) *App { return &App{} }

type Manager struct{}

func NewManager(handlers []interface{}) *Manager { return &Manager{} }

type H1 struct{}
type H2 struct{}

func newChainUniverse() *resolver.ReflectUniverse {
	u := resolver.NewReflectUniverse()
	u.RegisterClass("Factory", &Factory{})
	u.RegisterConstructor("Factory", NewFactory)
	u.RegisterMethod("Factory", "create", (*Factory).Create)
	u.RegisterMethod("Factory", "mark", (*Factory).Mark)
	u.RegisterClass("Obj", &Obj{})
	u.RegisterMethod("Obj", "foo", (*Obj).Foo)
	return u
}

var _ = Describe("Resolver end-to-end", func() {
	It("resolves a basic factory chain (scenario 1)", func() {
		u := newChainUniverse()
		b := dicoretest.NewBuilder(u)

		oneCreator := resolver.NewStatement(
			resolver.CallEntity(resolver.StatementHead(resolver.NewStatement(resolver.StringEntity("Factory"), nil)), "create"),
			nil,
		)
		one := dicoretest.NewDefinition("one", oneCreator)
		one.WithSetup(resolver.NewStatement(
			resolver.CallEntity(resolver.StatementHead(resolver.NewStatement(resolver.StringEntity("Factory"), nil)), "mark"),
			resolver.Arguments{{Value: resolver.Self()}},
		))
		b.Add(one)

		twoInner := resolver.NewStatement(
			resolver.CallEntity(resolver.ReferenceHead(resolver.Name("one")), "foo"),
			resolver.Arguments{{Value: 1}},
		)
		twoCreator := resolver.NewStatement(
			resolver.CallEntity(resolver.StatementHead(twoInner), "foo"),
			resolver.Arguments{{Value: 2}},
		)
		two := dicoretest.NewDefinition("two", twoCreator)
		b.Add(two)

		r := resolver.NewResolver(b, u)
		Expect(r.ResolveAll()).To(Succeed())
		Expect(one.Type()).To(Equal("Obj"))
		Expect(two.Type()).To(Equal("Obj"))

		Expect(r.CompleteAll()).To(Succeed())

		Expect(two.Creator().Arguments).To(Equal(resolver.Arguments{{Value: 2}}))
		innerStmt := two.Creator().Entity.Call.Head.Stmt
		Expect(innerStmt.Arguments).To(Equal(resolver.Arguments{{Value: 1}}))

		setupArgs := one.Setup()[0].Arguments
		Expect(setupArgs).To(Equal(resolver.Arguments{{Value: resolver.Self()}}))
	})

	It("detects a reference cycle (scenario 2)", func() {
		u := resolver.NewReflectUniverse()
		b := dicoretest.NewBuilder(u)
		a := dicoretest.NewDefinition("a", resolver.NewStatement(resolver.ReferenceEntity(resolver.Name("b")), nil))
		bb := dicoretest.NewDefinition("b", resolver.NewStatement(resolver.ReferenceEntity(resolver.Name("a")), nil))
		b.Add(a)
		b.Add(bb)

		r := resolver.NewResolver(b, u)
		err := r.ResolveAll()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("a, b"))
	})

	It("autowires a constructor parameter by type (scenario 3)", func() {
		u := resolver.NewReflectUniverse()
		u.RegisterClass("Logger", &Logger{})
		u.RegisterConstructor("Logger", NewLogger)
		u.RegisterClass("App", &App{})
		u.RegisterConstructor("App", NewApp)

		b := dicoretest.NewBuilder(u)
		logger := dicoretest.NewDefinition("logger", resolver.NewStatement(resolver.StringEntity("Logger"), nil))
		app := dicoretest.NewDefinition("app", resolver.NewStatement(resolver.StringEntity("App"), nil))
		b.Add(logger)
		b.Add(app)

		r := resolver.NewResolver(b, u)
		Expect(r.ResolveAll()).To(Succeed())
		Expect(r.CompleteAll()).To(Succeed())

		Expect(app.Creator().Arguments).To(Equal(resolver.Arguments{{Value: resolver.Name("logger")}}))
	})

	It("expands a tagged-service reference in insertion order (scenario 4)", func() {
		u := resolver.NewReflectUniverse()
		u.RegisterClass("Manager", &Manager{})
		u.RegisterConstructor("Manager", NewManager)
		u.RegisterClass("H1", &H1{})
		u.RegisterClass("H2", &H2{})

		b := dicoretest.NewBuilder(u)
		h1 := dicoretest.NewDefinition("h1", resolver.NewStatement(resolver.StringEntity("H1"), nil))
		h1.WithTags("handler")
		h2 := dicoretest.NewDefinition("h2", resolver.NewStatement(resolver.StringEntity("H2"), nil))
		h2.WithTags("handler")
		mgr := dicoretest.NewDefinition("mgr", resolver.NewStatement(
			resolver.StringEntity("Manager"),
			resolver.Arguments{{Value: resolver.NewStatement(
				resolver.StringEntity("tagged"),
				resolver.Arguments{{Value: "handler"}},
			)}},
		))
		b.Add(h1)
		b.Add(h2)
		b.Add(mgr)

		r := resolver.NewResolver(b, u)
		Expect(r.ResolveAll()).To(Succeed())
		Expect(r.CompleteAll()).To(Succeed())

		Expect(mgr.Creator().Arguments).To(Equal(resolver.Arguments{
			{Value: []interface{}{resolver.Name("h1"), resolver.Name("h2")}},
		}))
	})

	It("clears the currentService scope after completeDefinition regardless of outcome", func() {
		u := resolver.NewReflectUniverse()
		b := dicoretest.NewBuilder(u)
		broken := dicoretest.NewDefinition("broken", resolver.NewStatement(resolver.StringEntity("Missing"), nil)).WithType("Missing")
		b.Add(broken)

		r := resolver.NewResolver(b, u)
		err := r.CompleteDefinition(broken)
		Expect(err).To(HaveOccurred())

		// A second, unrelated definition must complete cleanly: nothing from
		// the failed attempt should have leaked into the resolver's scope.
		u.RegisterClass("Logger", &Logger{})
		u.RegisterConstructor("Logger", NewLogger)
		clean := dicoretest.NewDefinition("clean", resolver.NewStatement(resolver.StringEntity("Logger"), nil))
		b.Add(clean)
		Expect(r.ResolveDefinition(clean)).To(Succeed())
		Expect(r.CompleteDefinition(clean)).To(Succeed())
	})
})
