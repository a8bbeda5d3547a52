package entity

import (
	"math"

	"github.com/paulmach/orb"
)

// 平面向量运算，点与向量统一使用orb.Point表示

// Add 向量加法
func Add(a, b orb.Point) orb.Point {
	return orb.Point{a[0] + b[0], a[1] + b[1]}
}

// Sub 向量减法 a-b
func Sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}

// Scale 向量数乘
func Scale(a orb.Point, k float64) orb.Point {
	return orb.Point{a[0] * k, a[1] * k}
}

// Norm 向量长度
func Norm(a orb.Point) float64 {
	return math.Hypot(a[0], a[1])
}

// Normalize 单位化，零向量原样返回
func Normalize(a orb.Point) orb.Point {
	n := Norm(a)
	if n == 0 {
		return a
	}
	return orb.Point{a[0] / n, a[1] / n}
}

// Polar 由长度与朝向构造向量
func Polar(length, heading float64) orb.Point {
	return orb.Point{length * math.Cos(heading), length * math.Sin(heading)}
}

// Heading 向量朝向（弧度）
func Heading(a orb.Point) float64 {
	return math.Atan2(a[1], a[0])
}

// NormalizeAngle 将角度规整到(-π, π]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
