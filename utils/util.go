package utils

// FindByID 按ID批量查找
// 功能：ids为空时返回全部数据，否则按ids顺序返回找到的数据，并记录找不到的ID
// 参数：index-ID到数据的索引，all-全部数据，ids-待查ID
// 返回：found-找到的数据，missing-找不到的ID
func FindByID[K comparable, T any](index map[K]T, all []T, ids []K) (found []T, missing []K) {
	if len(ids) == 0 {
		return all, nil
	}
	found = make([]T, 0, len(ids))
	for _, id := range ids {
		if d, ok := index[id]; ok {
			found = append(found, d)
		} else {
			missing = append(missing, id)
		}
	}
	return
}
