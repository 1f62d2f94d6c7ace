package roommanager

import "math"

// Константы SMAP-кривой временного затухания очков
const (
	smapA  = 1.5
	smapB  = 0.5
	smapR0 = 0.5

	// Бонус за серию: +10% за каждый подряд правильный ответ, максимум +50%
	streakBonusStep = 0.1
	streakBonusCap  = 0.5
)

// CalculateScore вычисляет очки за правильный ответ.
//
// Кривая временного затухания двухрежимная: фактор близок к 1.0 при
// мгновенном ответе, круто падает в первой половине окна и полого
// затухает во второй, не опускаясь до нуля на границе окна:
//
//	timeFactor = (1 + (2^(b/a) - 1) * (t/r0)^a)^(-b)
//
// где t - нормированное время ответа в [0,1], a=1.5, b=0.5, r0=0.5.
// Контрольная точка: CalculateScore(1000, 5000, 30, 3) = 1267.
//
// Функция чистая и вызывается только для правильных ответов;
// неправильный ответ дает 0 очков и сбрасывает серию на стороне вызывающего.
func CalculateScore(maxPoints int, responseTimeMs int64, timeLimitSec int, streak int) int {
	if maxPoints <= 0 {
		return 0
	}
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}

	normalizedTime := 1.0
	if timeLimitSec > 0 {
		normalizedTime = math.Min(float64(responseTimeMs)/float64(timeLimitSec*1000), 1.0)
	}

	timeFactor := math.Pow(1+(math.Pow(2, smapB/smapA)-1)*math.Pow(normalizedTime/smapR0, smapA), -smapB)
	basePoints := math.Floor(float64(maxPoints) * timeFactor)

	if streak < 0 {
		streak = 0
	}
	streakMultiplier := 1 + math.Min(streakBonusCap, float64(streak)*streakBonusStep)

	return int(math.Floor(basePoints * streakMultiplier))
}
