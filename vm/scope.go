package vm

import (
	"strings"

	"github.com/deepnoodle-ai/actionvm/object"
)

// scopeLink is one entry of a lexical scope chain. The chain ends at the
// global object.
type scopeLink struct {
	scope object.Object
	next  *scopeLink
}

func (l *scopeLink) create(scope object.Object) *scopeLink {
	return &scopeLink{scope: scope, next: l}
}

// isPathName reports whether a variable name addresses another target.
func isPathName(name string) bool {
	return strings.ContainsAny(name, ".:/")
}

// lookupGet finds the object that holds a variable for reading and the
// property name to read from it. A nil holder means the variable does not
// exist. An unbound this resolves through a detached holder bound to the
// default target; the innermost scope is left unchanged.
func (ex *execution) lookupGet(name string) (object.Object, string) {
	if isPathName(name) {
		return ex.lookupPath(name)
	}
	vm := ex.vm
	if vm.currentTarget != nil && vm.currentTarget.HasProperty(name) {
		return vm.currentTarget, name
	}
	for p := ex.scopes; p != nil; p = p.next {
		if p.scope.HasProperty(name) {
			return p.scope, name
		}
	}
	if name == "this" && vm.defaultTarget != nil {
		holder := object.NewPlainObject(nil)
		holder.Put("this", vm.defaultTarget)
		return holder, name
	}
	return nil, name
}

// lookupSet finds the object a variable assignment writes to. Unknown
// variables are created in the innermost scope, never on the globals.
func (ex *execution) lookupSet(name string) (object.Object, string) {
	if isPathName(name) {
		return ex.lookupPath(name)
	}
	if ex.vm.currentTarget != nil {
		return ex.vm.currentTarget, name
	}
	for p := ex.scopes; p != nil && p.next != nil; p = p.next {
		if p.scope.HasProperty(name) {
			return p.scope, name
		}
	}
	return ex.scopes.scope, name
}

// lookupPath resolves a variable name that contains a path. With a colon
// the part before it is a target path; otherwise dotted names walk
// objects starting from the lexical scope and slash names address a
// member of a target.
func (ex *execution) lookupPath(name string) (object.Object, string) {
	vm := ex.vm
	if path, prop, ok := strings.Cut(name, ":"); ok {
		return vm.lookupChild(path, true), prop
	}
	if i := strings.LastIndex(name, "/"); i >= 0 && !strings.Contains(name, ".") {
		path, prop := name[:i], name[i+1:]
		if path == "" {
			path = "/"
		}
		return vm.lookupChild(path, true), prop
	}

	segments := strings.Split(name, ".")
	prop := segments[len(segments)-1]
	holder, first := ex.lookupGet(segments[0])
	if holder == nil {
		vm.warn("%s is not found while resolving %s", segments[0], name)
		return nil, prop
	}
	obj := object.ToObject(holder.Get(first))
	for _, seg := range segments[1 : len(segments)-1] {
		if obj == nil || !obj.HasProperty(seg) {
			vm.warn("%s is not found while resolving %s", seg, name)
			return nil, prop
		}
		obj = object.ToObject(obj.Get(seg))
	}
	if obj == nil {
		vm.warn("%s is not an object while resolving %s", segments[len(segments)-2], name)
		return nil, prop
	}
	return obj, prop
}
