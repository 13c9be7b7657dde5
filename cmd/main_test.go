package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cpuSource = `class CPU {
  PC: number;
  memory: Uint8Array;

  constructor(memory: Uint8Array) {
    this.PC = 0;
    this.memory = memory;
  }

  opAdc(cpu) {
    this.pc++;
  }

  opLdHLd8() {
    this.memory[this.HL] = byte;
  }

  opHalt() {
    this.halted = true;
`

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cpu.ts")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func Test_Run(t *testing.T) {
	var out bytes.Buffer
	err := run(config{in: writeSource(t, cpuSource)}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Equal(t, 2, strings.Count(s, "extends Instruction"))
	assert.Contains(t, s, "export class Adc extends Instruction {\n")
	assert.Contains(t, s, "  exec(cpu: CPU, memory: Memory) {\n    cpu.pc++;\n")
	assert.Contains(t, s, "export class LdHLd8 extends Instruction {\n")
	assert.Contains(t, s, "    memory.setByte(cpu.HL, memory.getByte(this.address));\n")
	assert.NotContains(t, s, "Halt")
	assert.NotContains(t, s, "halted")
}

func Test_Run_KeepPrefix(t *testing.T) {
	var out bytes.Buffer
	err := run(config{in: writeSource(t, cpuSource), keepPrefix: true}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "export class OpAdc extends Instruction {\n")
	assert.Contains(t, out.String(), "export class OpLdHLd8 extends Instruction {\n")
}

func Test_Run_MissingInput(t *testing.T) {
	var out bytes.Buffer
	err := run(config{in: filepath.Join(t.TempDir(), "cpu.ts")}, &out)
	assert.ErrorContains(t, err, "couldn't open the file")
	assert.Empty(t, out.String())
}

func Test_Run_ListRules(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(config{listRules: true}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "memory-member"))
	assert.True(t, strings.HasPrefix(lines[4], "write-back"))
}

func Test_ParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := parseFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, config{in: "src/cpu.ts"}, cfg)
	})

	t.Run("all flags", func(t *testing.T) {
		cfg, err := parseFlags([]string{"-in", "a.ts", "-keep-prefix", "-rules", "-v", "-vv", "-profile", "mem"})
		require.NoError(t, err)
		assert.Equal(t, config{
			in:         "a.ts",
			keepPrefix: true,
			listRules:  true,
			verbose:    true,
			trace:      true,
			profile:    "mem",
		}, cfg)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := parseFlags([]string{"-profile", "block"})
		assert.ErrorContains(t, err, "unknown profile mode")
	})
}
