package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
	"waste-dispatch-service/internal/platform/obs"
	"waste-dispatch-service/internal/ports"
)

// WorkmateSphere returns every operator transitively connected to operatorID
// through shared trips, excluding operatorID itself, in ascending id order.
//
// Only drivers have a sphere: an operator with no drive capability (or an
// unknown id) yields an empty result even if they appear on trips.
func (s *Scheduler) WorkmateSphere(ctx context.Context, operatorID int) (sphere []int, err error) {
	defer obs.Time(ctx, s.log, "workmate_sphere")(&err)
	began := time.Now()
	defer func() { s.observeLookup("workmate_sphere", began, len(sphere), err) }()

	sphere = []int{}
	err = s.inTx(ctx, "workmate sphere", func(tx ports.LedgerTx) (bool, error) {
		op, err := tx.GetOperator(ctx, operatorID)
		if errors.Is(err, ports.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("workmate sphere: get operator %d: %w", operatorID, err)
		}
		if !op.IsDriver() {
			return false, nil
		}

		pairs, err := tx.ListOperatorPairs(ctx)
		if err != nil {
			return false, fmt.Errorf("workmate sphere: list operator pairs: %w", err)
		}

		sphere = reachable(adjacency(pairs), operatorID)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return sphere, nil
}

// adjacency materialises the undirected co-assignment graph.
func adjacency(pairs [][2]int) map[int]map[int]struct{} {
	adj := make(map[int]map[int]struct{})
	link := func(a, b int) {
		if adj[a] == nil {
			adj[a] = make(map[int]struct{})
		}
		adj[a][b] = struct{}{}
	}

	for _, p := range pairs {
		if p[0] == p[1] {
			continue
		}
		link(p[0], p[1])
		link(p[1], p[0])
	}
	return adj
}

// reachable walks the graph depth-first with an explicit stack.
func reachable(adj map[int]map[int]struct{}, start int) []int {
	visited := map[int]struct{}{start: {}}
	stack := []int{start}
	out := []int{}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for next := range adj[n] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			stack = append(stack, next)
		}
	}

	slices.Sort(out)
	return out
}
