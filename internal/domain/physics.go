package domain

// TickResult reports what happened during one physics step.
type TickResult struct {
	// GoalBy is the side that scored this tick, empty when no goal.
	GoalBy Side
}

// StepBall advances the ball by one tick and resolves collisions and
// scoring. Velocities are expressed per tick, so no dt parameter is
// needed; the loop calls this at a fixed rate.
//
// Collision order mirrors the original engine: integrate, bounce off the
// horizontal walls, then check the paddle planes, then the goal lines.
func (s *MatchState) StepBall() TickResult {
	b := &s.Ball
	b.X += b.SpeedX
	b.Y += b.SpeedY

	// vertical wall collision
	if b.Y-BallRadius <= 0 {
		b.Y = BallRadius
		b.SpeedY = -b.SpeedY
	} else if b.Y+BallRadius >= FieldHeight {
		b.Y = FieldHeight - BallRadius
		b.SpeedY = -b.SpeedY
	}

	// left paddle plane
	if b.SpeedX < 0 && b.X-BallRadius <= PaddleWidth {
		if hitsPaddle(b.Y, s.Paddles.Left) {
			b.X = PaddleWidth + BallRadius
			b.SpeedX = -b.SpeedX
			b.SpeedY += deflection(b.Y, s.Paddles.Left)
		}
	}

	// right paddle plane
	if b.SpeedX > 0 && b.X+BallRadius >= FieldWidth-PaddleWidth {
		if hitsPaddle(b.Y, s.Paddles.Right) {
			b.X = FieldWidth - PaddleWidth - BallRadius
			b.SpeedX = -b.SpeedX
			b.SpeedY += deflection(b.Y, s.Paddles.Right)
		}
	}

	// scoring: past the left edge the right side scores, and vice versa
	if b.X < 0 {
		s.Scores.Right++
		s.Serve(SideLeft)
		return TickResult{GoalBy: SideRight}
	}
	if b.X > FieldWidth {
		s.Scores.Left++
		s.Serve(SideRight)
		return TickResult{GoalBy: SideLeft}
	}

	return TickResult{}
}

func hitsPaddle(ballY, paddleOffset float64) bool {
	return ballY >= paddleOffset && ballY <= paddleOffset+PaddleHeight
}

// deflection adds vertical speed proportional to the hit offset from the
// paddle center. Deterministic for identical inputs.
func deflection(ballY, paddleOffset float64) float64 {
	center := paddleOffset + PaddleHeight/2
	return (ballY - center) / (PaddleHeight / 2) * DeflectFactor
}

// ReachedThreshold reports whether either side hit the score threshold.
func (s *MatchState) ReachedThreshold() bool {
	return s.Scores.Left >= ScoreThreshold || s.Scores.Right >= ScoreThreshold
}

// LeadingSide returns the side with the higher score. Ties are impossible
// once the threshold is reached because the loop finalizes immediately.
func (s *MatchState) LeadingSide() Side {
	if s.Scores.Right > s.Scores.Left {
		return SideRight
	}
	return SideLeft
}
