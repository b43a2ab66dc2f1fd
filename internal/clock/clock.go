// Package clock は現在時刻の取得を抽象化する。
// タイムスタンプ付与とJWTの有効期限検証はすべてこのパッケージ経由で時刻を得る。
package clock

import "time"

// Clock は現在時刻を返す。
type Clock interface {
	Now() time.Time
}

// systemClock は指定タイムゾーンの壁時計。
type systemClock struct {
	loc *time.Location
}

// New は指定タイムゾーンのシステム時計を返す。locがnilの場合はUTCを使う。
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

// Now は現在時刻を返す。
func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Func は関数をClockとして扱うアダプタ。テストで時刻を固定するのに使う。
type Func func() time.Time

// Now はfを呼び出す。
func (f Func) Now() time.Time {
	return f()
}
