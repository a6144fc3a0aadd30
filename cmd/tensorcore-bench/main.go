// Command tensorcore-bench is a demonstration/bench harness external to
// the compute core itself (spec.md §6 rules out a CLI for the core
// proper): it drives an executor end to end the way a host embedder
// would, so the arena, pattern cache, and kernels can be exercised
// outside of unit tests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/executor"
	"github.com/nmxmxh/tensorcore/internal/kernels/binary"
)

func main() {
	fmt.Println("tensorcore-bench starting...")

	root := &cobra.Command{
		Use:   "tensorcore-bench",
		Short: "Exercise the tensor compute core from the command line",
	}

	root.AddCommand(newAllocCmd(), newRunCmd(), newStatsCmd())

	if err := root.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func newAllocCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Allocate a temporary f32 vector and report arena occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := executor.New()
			t, err := e.AllocTempTensor(dtype.F32, []int{size})
			if err != nil {
				return err
			}
			stats := e.MemoryStats()
			fmt.Printf("allocated tensor shape=%v bytes=%d\n", t.Meta.Shape, t.Meta.ByteSize())
			fmt.Printf("arena: used=%d cap=%d utilization=%.4f\n", stats.ArenaUsed, stats.ArenaCap, stats.ArenaUtilization)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 1024, "number of f32 elements to allocate")
	return cmd
}

func newRunCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an elementwise add n times and report pattern cache counts and hits",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := executor.New()
			shape := []int{256}

			for i := 0; i < n; i++ {
				a, err := e.AllocTempTensor(dtype.F32, shape)
				if err != nil {
					return err
				}
				b, err := e.AllocTempTensor(dtype.F32, shape)
				if err != nil {
					return err
				}
				out, err := e.AllocTempTensor(dtype.F32, shape)
				if err != nil {
					return err
				}
				if err := e.ExecuteBinary(binary.Add, a, b, out); err != nil {
					return err
				}
			}

			stats := e.PatternCacheStats()
			fmt.Printf("ran %d additions: patterns=%d hits=%d hot=%d\n", n, stats.Count, stats.TotalHits, stats.Hot)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 10, "number of additions to run")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print feature probes and a freshly constructed executor's baseline stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := executor.New()
			mem := e.MemoryStats()
			pat := e.PatternCacheStats()

			fmt.Printf("simd128=%t bulk_memory=%t\n", executor.HasSIMD128Support(), executor.HasBulkMemorySupport())
			fmt.Printf("arena: used=%d cap=%d\n", mem.ArenaUsed, mem.ArenaCap)
			fmt.Printf("patterns: count=%d bytes_used=%d\n", pat.Count, pat.Bytes)
			return nil
		},
	}
}
