// Package roster reads technician qualification rosters.
//
// A roster is a sequence of two-line entries. The first line names the
// technician; its last two whitespace-separated tokens are taken as the first
// and last name, so leading titles or ids are ignored. The second line is the
// vehicle type the technician is now qualified for. Blank lines are skipped.
package roster

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"waste-dispatch-service/internal/domain"
)

func Parse(r io.Reader) ([]domain.TechnicianGrant, error) {
	sc := bufio.NewScanner(r)

	var (
		grants  []domain.TechnicianGrant
		pending *domain.TechnicianGrant
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if pending == nil {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, fmt.Errorf("parse roster: line %d: want first and last name, got %q", lineNo, line)
			}
			pending = &domain.TechnicianGrant{
				FirstName: fields[len(fields)-2],
				LastName:  fields[len(fields)-1],
			}
			continue
		}

		pending.VehicleType = line
		grants = append(grants, *pending)
		pending = nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse roster: read: %w", err)
	}
	if pending != nil {
		return nil, fmt.Errorf("parse roster: entry for %q has no vehicle type", pending.FullName())
	}

	return grants, nil
}
