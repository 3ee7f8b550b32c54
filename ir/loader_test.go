package ir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStraightLine(t *testing.T) {
	src := `
target triple = "armv7-none-eabi"

define i32 @straight(i32 %a, i32 %b) {
entry:
  %1 = add i32 %a, %b
  %2 = add i32 %1, %1
  ret i32 %2
}
`
	path := writeTemp(t, "straight.ll", src)
	mod, err := Load(path)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)

	fn := mod.Functions[0]
	assert.Equal(t, "straight", fn.Name)
	require.Len(t, fn.Blocks, 1)
	entry := fn.Entry()
	assert.Len(t, entry.Instrs, 2)
	assert.Equal(t, ClassArithInt, entry.Instrs[0].Class)
	assert.Equal(t, TermReturn, entry.Term.Kind)
}

func TestLoadConditionalBranch(t *testing.T) {
	src := `
define i32 @cond(i32 %a) {
entry:
  %cmp = icmp sgt i32 %a, 0
  br i1 %cmp, label %pos, label %neg
pos:
  ret i32 1
neg:
  ret i32 -1
}
`
	path := writeTemp(t, "cond.ll", src)
	mod, err := Load(path)
	require.NoError(t, err)
	fn := mod.Functions[0]
	require.Len(t, fn.Blocks, 3)

	entry := fn.Entry()
	assert.Equal(t, ClassCmp, entry.Instrs[0].Class)
	assert.Equal(t, TermConditional, entry.Term.Kind)
	assert.Equal(t, []string{"pos", "neg"}, entry.Term.Targets)
}

func TestLoadSwitch(t *testing.T) {
	src := `
define i32 @sw(i32 %a) {
entry:
  switch i32 %a, label %default [
    i32 0, label %case0
    i32 1, label %case1
  ]
default:
  ret i32 -1
case0:
  ret i32 0
case1:
  ret i32 1
}
`
	path := writeTemp(t, "sw.ll", src)
	mod, err := Load(path)
	require.NoError(t, err)
	fn := mod.Functions[0]
	entry := fn.Entry()
	require.Equal(t, TermSwitch, entry.Term.Kind)
	assert.Equal(t, []string{"default", "case0", "case1"}, entry.Term.Targets)
}

func TestLoadRejectsVectorType(t *testing.T) {
	src := `
define <4 x i32> @vec(<4 x i32> %a, <4 x i32> %b) {
entry:
  %1 = add <4 x i32> %a, %b
  ret <4 x i32> %1
}
`
	path := writeTemp(t, "vec.ll", src)
	_, err := Load(path)
	require.Error(t, err)
	var uf *UnsupportedFeature
	assert.ErrorAs(t, err, &uf)
}

func TestLoadRejectsInvoke(t *testing.T) {
	src := `
define i32 @inv(i32 %a) {
entry:
  %1 = invoke i32 @might_throw(i32 %a) to label %ok unwind label %lp
ok:
  ret i32 %1
lp:
  unreachable
}
`
	path := writeTemp(t, "inv.ll", src)
	_, err := Load(path)
	require.Error(t, err)
	var uf *UnsupportedFeature
	assert.ErrorAs(t, err, &uf)
}

func TestLoadMalformedMissingTerminator(t *testing.T) {
	src := `
define i32 @bad() {
entry:
  %1 = add i32 0, 0
}
`
	path := writeTemp(t, "bad.ll", src)
	_, err := Load(path)
	require.Error(t, err)
	var pf *ParseFailure
	assert.ErrorAs(t, err, &pf)
}

func TestLoadAllSkipsFailures(t *testing.T) {
	good := writeTemp(t, "good.ll", `
define i32 @ok() {
entry:
  ret i32 0
}
`)
	bad := writeTemp(t, "bad.ll", `this is not IR`)

	mods, skipped := LoadAll([]string{good, bad})
	assert.Len(t, mods, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, bad, skipped[0].Path)
}

func TestClassifyDiscardsMetadataAndAttributes(t *testing.T) {
	src := `
define i32 @withmeta(i32 %a) {
entry:
  %1 = add nsw i32 %a, 1, !dbg !7
  ret i32 %1, !dbg !8
}
!7 = !{}
!8 = !{}
`
	path := writeTemp(t, "meta.ll", src)
	mod, err := Load(path)
	require.NoError(t, err)
	fn := mod.Functions[0]
	require.Len(t, fn.Entry().Instrs, 1)
	assert.Equal(t, ClassArithInt, fn.Entry().Instrs[0].Class)
}
