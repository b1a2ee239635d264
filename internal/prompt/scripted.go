package prompt

import (
	"context"

	"github.com/aws/chroot-teardown/internal/occupancy"
)

// Scripted answers prompts from a fixed list and aborts once it runs out.
type Scripted struct {
	Answers []Choice
	// Asked records the occupant PIDs shown at each prompt.
	Asked [][]int
}

func (s *Scripted) Choose(_ context.Context, _ string, occupants []occupancy.Process) (Choice, error) {
	s.Asked = append(s.Asked, occupancy.PIDs(occupants))
	if len(s.Answers) == 0 {
		return ChoiceAbort, nil
	}
	choice := s.Answers[0]
	s.Answers = s.Answers[1:]
	return choice, nil
}
