package logging

// Convenience wrappers so call sites read as logging.Oracle(...) instead of
// logging.Get(logging.CategoryOracle).Info(...).

func Oracle(format string, args ...interface{})      { Get(CategoryOracle).Info(format, args...) }
func OracleDebug(format string, args ...interface{}) { Get(CategoryOracle).Debug(format, args...) }
func OracleWarn(format string, args ...interface{})  { Get(CategoryOracle).Warn(format, args...) }
func OracleError(format string, args ...interface{}) { Get(CategoryOracle).Error(format, args...) }

func Explorer(format string, args ...interface{})      { Get(CategoryExplorer).Info(format, args...) }
func ExplorerDebug(format string, args ...interface{}) { Get(CategoryExplorer).Debug(format, args...) }
func ExplorerWarn(format string, args ...interface{})  { Get(CategoryExplorer).Warn(format, args...) }

func Enrich(format string, args ...interface{})      { Get(CategoryEnrich).Info(format, args...) }
func EnrichDebug(format string, args ...interface{}) { Get(CategoryEnrich).Debug(format, args...) }
func EnrichWarn(format string, args ...interface{})  { Get(CategoryEnrich).Warn(format, args...) }

func Compose(format string, args ...interface{})     { Get(CategoryCompose).Info(format, args...) }
func ComposeWarn(format string, args ...interface{}) { Get(CategoryCompose).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
