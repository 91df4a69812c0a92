package service

import (
	"fmt"
	"time"
)

// 月份分组使用固定时区和固定文案，不依赖运行平台的 locale；
// 分组字符串是查询的过滤键，必须在任何机器上都产生一致结果。
var monthZone = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("+07", 7*3600)
	}
	return loc
}()

// MonthBucket 由时间戳确定性地导出月份分组标签，如 "tháng 3 năm 2026"。
func MonthBucket(t time.Time) string {
	t = t.In(monthZone)
	return fmt.Sprintf("tháng %d năm %d", int(t.Month()), t.Year())
}
